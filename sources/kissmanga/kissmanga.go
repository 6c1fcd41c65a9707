// Package kissmanga provides the KissManga source, a Madara site.
package kissmanga

import (
	"time"

	"tosho/sources/madara"
)

const baseURL = "https://kissmanga.in"

// New returns the KissManga source. Chapter URLs do not live under
// the /manga/ detail path, so chapter IDs keep the full URL path.
func New() *madara.Source {
	return madara.New(madara.Config{
		ID:             "kmg",
		Name:           "KissManga",
		BaseURL:        baseURL,
		PathChapterIDs: true,
		Delay:          2 * time.Second,
		Headers: map[string]string{
			"Referer":         baseURL + "/",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		Selectors: madara.Selectors{
			MangaItem:    "div.post-title h3 a",
			ChapterLinks: "li.wp-manga-chapter > a",
			ChapterPages: "div.page-break img",
		},
	})
}
