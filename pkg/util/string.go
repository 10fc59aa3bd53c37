package util

import (
	"fmt"
	"regexp"
	"strings"
)

// GenerateSlug creates a URL-friendly slug from title
func GenerateSlug(title string) string {
	// Convert to lowercase
	slug := strings.ToLower(title)

	// Replace spaces and special characters with hyphens
	reg := regexp.MustCompile(`[^a-z0-9]+`)
	slug = reg.ReplaceAllString(slug, "-")

	// Remove leading/trailing hyphens
	slug = strings.Trim(slug, "-")

	// Limit length
	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.Trim(slug, "-")
	}

	return slug
}

// DeriveAltText builds deterministic alt text from a topic when the image
// provider supplied no description. The result is never empty.
func DeriveAltText(topic string) string {
	topic = strings.Join(strings.Fields(topic), " ")
	if topic == "" {
		return "Featured blog image"
	}
	return fmt.Sprintf("Featured image for %s", topic)
}

// ParseTags parses tag strings into arrays
func ParseTags(tagStr string) []string {
	if tagStr == "" {
		return []string{}
	}

	// Remove brackets if present
	tagStr = strings.Trim(tagStr, "[]")

	// Split by comma and clean up
	tags := strings.Split(tagStr, ",")
	var cleanTags []string

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		tag = strings.Trim(tag, "\"'") // Remove quotes
		if tag != "" {
			cleanTags = append(cleanTags, tag)
		}
	}

	return cleanTags
}

// SplitList splits a spreadsheet cell that may hold several values separated
// by commas or semicolons.
func SplitList(cell string) []string {
	if strings.Contains(cell, ";") {
		cell = strings.ReplaceAll(cell, ";", ",")
	}
	return ParseTags(cell)
}
