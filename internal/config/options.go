package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
)

// Options is the HCL source options file:
//
//	collection "courses" {
//	  params = { exclude_utm = "1", limit = "100" }
//	}
//
//	limited {
//	  course_uuids  = ["..."]
//	  program_uuids = ["..."]
//	}
//
//	recommendations {
//	  course_uuids = ["..."]
//	}
type Options struct {
	Collections     []CollectionOptions    `hcl:"collection,block"`
	Limited         *LimitedOptions        `hcl:"limited,block"`
	Recommendations *RecommendationOptions `hcl:"recommendations,block"`
}

// CollectionOptions overrides query parameters for one catalog collection.
type CollectionOptions struct {
	Name   string            `hcl:"name,label"`
	Params map[string]string `hcl:"params,optional"`
}

// LimitedOptions lists the UUIDs fetched in limited mode.
type LimitedOptions struct {
	CourseUUIDs  []string `hcl:"course_uuids,optional"`
	ProgramUUIDs []string `hcl:"program_uuids,optional"`
}

// RecommendationOptions selects which courses get recommendations fetched.
type RecommendationOptions struct {
	All         bool     `hcl:"all,optional"`
	CourseUUIDs []string `hcl:"course_uuids,optional"`
}

// LoadOptions reads the options file at path. A missing file yields empty options.
func LoadOptions(path string) (*Options, error) {
	if path == "" {
		return &Options{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &Options{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	return decodeOptions(file, diags)
}

// ParseOptions decodes options from HCL source.
func ParseOptions(src []byte, filename string) (*Options, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	return decodeOptions(file, diags)
}

func decodeOptions(file *hcl.File, diags hcl.Diagnostics) (*Options, error) {
	if diags.HasErrors() {
		return nil, domainerrors.Configf("parse options: %s", diags.Error())
	}
	var opts Options
	if diags := gohcl.DecodeBody(file.Body, nil, &opts); diags.HasErrors() {
		return nil, domainerrors.Configf("decode options: %s", diags.Error())
	}

	seen := make(map[string]bool, len(opts.Collections))
	for _, c := range opts.Collections {
		if seen[c.Name] {
			return nil, domainerrors.Configf("collection %q declared more than once", c.Name)
		}
		seen[c.Name] = true
	}
	return &opts, nil
}

// Params returns the query parameter overrides for a collection, or nil.
func (o *Options) Params(collection string) map[string]string {
	if o == nil {
		return nil
	}
	for _, c := range o.Collections {
		if c.Name == collection {
			return c.Params
		}
	}
	return nil
}

// LimitedCourseUUIDs returns the course UUIDs fetched in limited mode.
func (o *Options) LimitedCourseUUIDs() []string {
	if o == nil || o.Limited == nil {
		return nil
	}
	return o.Limited.CourseUUIDs
}

// LimitedProgramUUIDs returns the program UUIDs fetched in limited mode.
func (o *Options) LimitedProgramUUIDs() []string {
	if o == nil || o.Limited == nil {
		return nil
	}
	return o.Limited.ProgramUUIDs
}

// WantsRecommendations reports whether recommendations are fetched for the course.
func (o *Options) WantsRecommendations(courseUUID string) bool {
	if o == nil || o.Recommendations == nil {
		return false
	}
	if o.Recommendations.All {
		return true
	}
	for _, u := range o.Recommendations.CourseUUIDs {
		if u == courseUUID {
			return true
		}
	}
	return false
}
