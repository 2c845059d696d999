// Package classify assigns a category to an event by ordered keyword
// matching over its summary and description.
package classify

import (
	"strings"

	"gridcal/internal/model"
)

// Default keyword lists. Both lists are bilingual (Chinese + English)
// and matched as exact substrings after case folding.
var (
	DefaultHolidayKeywords = []string{
		"假期", "休假", "放假", "节日", "春节", "国庆", "中秋", "端午",
		"清明", "元旦", "holiday", "vacation",
	}
	DefaultWorkKeywords = []string{
		"会议", "项目", "评审", "汇报", "培训", "出差", "客户", "团队",
		"meeting", "project", "work",
	}
)

// Classifier tests event text against fixed keyword lists.
// Holiday keywords take precedence over work keywords; text matching
// neither list classifies as personal.
type Classifier struct {
	holiday []string
	work    []string
}

// New builds a Classifier from the given keyword lists. An empty list
// falls back to the corresponding default. Keywords are case-folded once
// here so Classify only folds the input text.
func New(holiday, work []string) *Classifier {
	if len(holiday) == 0 {
		holiday = DefaultHolidayKeywords
	}
	if len(work) == 0 {
		work = DefaultWorkKeywords
	}
	return &Classifier{
		holiday: lowerAll(holiday),
		work:    lowerAll(work),
	}
}

// Classify returns the category for the given summary and description.
// It is total: any input yields a category.
func (c *Classifier) Classify(summary, description string) model.Category {
	text := strings.ToLower(summary + " " + description)

	for _, kw := range c.holiday {
		if strings.Contains(text, kw) {
			return model.CategoryHoliday
		}
	}
	for _, kw := range c.work {
		if strings.Contains(text, kw) {
			return model.CategoryWork
		}
	}
	return model.CategoryPersonal
}

// Classify runs the default classifier.
func Classify(summary, description string) model.Category {
	return New(nil, nil).Classify(summary, description)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
