package model

import "time"

// DefaultCategory is applied to projects created without a category.
const DefaultCategory = "Full-stack"

// Project is a showcase entry. Media fields hold URLs produced by the
// external media host.
type Project struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	ImageURL      string     `json:"image,omitempty"`
	VideoURL      string     `json:"video,omitempty"`
	Technologies  []string   `json:"technologies"`
	GithubURL     string     `json:"githubUrl,omitempty"`
	DemoURL       string     `json:"demoUrl,omitempty"`
	DateCompleted *time.Time `json:"dateCompleted,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
