package processor

import (
	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/id"
)

// Subject projects a raw subject. Its own text becomes the English entry.
func Subject(raw *domain.RawSubject) *domain.Subject {
	slug := raw.Slug
	if slug == "" {
		slug = Slugify(raw.Name)
	}
	return &domain.Subject{
		NodeID:       id.NodeID(domain.TypeSubject, raw.UUID),
		UUID:         raw.UUID,
		Name:         raw.Name,
		Slug:         slug,
		CardImageURL: raw.CardImageURL,
		Labels:       map[string]string{domain.LocaleEN: raw.Name},
		Subtitles:    map[string]string{domain.LocaleEN: raw.Subtitle},
		Descriptions: map[string]string{domain.LocaleEN: raw.Description},
	}
}

// ApplySubjectTranslation records a translated subject record on its base subject.
func ApplySubjectTranslation(base *domain.Subject, lang string, translated *domain.RawSubject) {
	base.Labels[lang] = translated.Name
	base.Subtitles[lang] = translated.Subtitle
	base.Descriptions[lang] = translated.Description
}

// Topics returns one topic per distinct tag, in first-seen order across courses.
func Topics(courses []*domain.Course) []*domain.Topic {
	seen := make(map[string]bool)
	var topics []*domain.Topic
	for _, c := range courses {
		for _, name := range c.Topics {
			if seen[name] {
				continue
			}
			seen[name] = true
			topics = append(topics, &domain.Topic{
				NodeID: id.NodeID(domain.TypeTopic, name),
				Name:   name,
				Slug:   Slugify(name),
			})
		}
	}
	return topics
}
