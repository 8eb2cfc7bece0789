package commerce

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/prospectus/catalog-source/internal/domain"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/logger"
)

// Entitlement modes and seat types that carry a program price.
const (
	ModeVerified     = "verified"
	ModeProfessional = "professional"
)

// CourseLookup fetches full course records by uuid.
type CourseLookup interface {
	CoursesByUUID(ctx context.Context, uuids []string) ([]*domain.Course, error)
}

// Calculator prices a bundle of skus.
type Calculator interface {
	Calculate(ctx context.Context, skus []string, bundle string) (*Basket, error)
}

// Pricer resolves program prices.
type Pricer struct {
	basket    Calculator
	courses   CourseLookup
	basketURL string
	logger    *logger.Logger
}

// NewPricer creates a pricer. basketURL is the enrollment page bundles link to.
func NewPricer(basket Calculator, courses CourseLookup, basketURL string, log *logger.Logger) *Pricer {
	if log == nil {
		log = logger.Discard()
	}
	return &Pricer{basket: basket, courses: courses, basketURL: basketURL, logger: log.Component("pricer")}
}

// Resolve sets the price, skus and enroll URL of p.
//
// A program with no resolvable sku keeps its price fields unset and is not an
// error. A basket failure returns a PRICING error; p is left unpriced.
func (r *Pricer) Resolve(ctx context.Context, p *domain.Program) error {
	skus := r.SKUs(ctx, p)
	if len(skus) == 0 {
		r.logger.Debug("no skus for program", "program", p.UUID)
		return nil
	}

	basket, err := r.basket.Calculate(ctx, skus, p.UUID)
	if err == nil && !basket.Numeric() {
		r.logger.Warn("non-numeric basket totals, retrying", "program", p.UUID)
		basket, err = r.basket.Calculate(ctx, skus, p.UUID)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domainerrors.Pricingf("price program %s (%s)", p.Title, p.UUID).WithCause(err)
	}
	if !basket.Numeric() {
		return domainerrors.Pricingf("price program %s (%s): non-numeric basket totals", p.Title, p.UUID)
	}

	p.ProgramPrice = basket.Total
	p.ProgramOriginalPrice = basket.TotalExclDiscount
	p.SKUs = skus
	p.EnrollBaseURL = r.enrollURL(p.UUID)
	return nil
}

// SKUs collects the skus that price p: verified or professional entitlements of
// its member courses, then the best active-run seat of courses with none.
func (r *Pricer) SKUs(ctx context.Context, p *domain.Program) []string {
	var (
		skus    []string
		missing []string
	)
	for _, c := range p.MemberCourses {
		if len(c.Entitlements) == 0 {
			missing = append(missing, c.UUID)
			continue
		}
		for _, e := range c.Entitlements {
			if e.Mode != ModeVerified && e.Mode != ModeProfessional {
				continue
			}
			if e.SKU == "" {
				r.logger.Warn("program has incorrectly set skus", "program", p.UUID, "title", p.Title)
				continue
			}
			skus = append(skus, e.SKU)
		}
	}
	if len(missing) == 0 || r.courses == nil {
		return skus
	}

	courses, err := r.courses.CoursesByUUID(ctx, missing)
	if err != nil {
		r.logger.Error("fetch courses missing entitlements failed", "program", p.UUID, "error", err)
		return skus
	}
	for _, c := range courses {
		if sku := SeatSKU(c); sku != "" {
			r.logger.Info("entitlement missing for program course, using active run seat sku", "course", c.UUID, "title", c.Title)
			skus = append(skus, sku)
		} else {
			r.logger.Warn("no seat sku for program course", "course", c.UUID, "title", c.Title)
		}
	}
	return skus
}

// SeatSKU returns the sku of the best-ranked seat of c's active run, or "".
// Verified and professional seats rank ahead of the rest; ties keep seat order.
func SeatSKU(c *domain.Course) string {
	if c.ActiveCourseRun == nil || len(c.ActiveCourseRun.Seats) == 0 {
		return ""
	}
	seats := slices.Clone(c.ActiveCourseRun.Seats)
	slices.SortStableFunc(seats, func(a, b domain.Seat) int {
		return seatRank(a) - seatRank(b)
	})
	return seats[0].SKU
}

func seatRank(s domain.Seat) int {
	if s.Type == ModeVerified || s.Type == ModeProfessional {
		return 1
	}
	return 2
}

func (r *Pricer) enrollURL(bundle string) string {
	if r.basketURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(r.basketURL, "?") {
		sep = "&"
	}
	return r.basketURL + sep + url.Values{"bundle": {bundle}}.Encode()
}
