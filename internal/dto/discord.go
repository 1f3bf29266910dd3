package dto

import (
	"time"

	"github.com/rzn0/forgetn-t/internal/render"
)

// Component types
const (
	ComponentTypeActionRow = 1
	ComponentTypeButton    = 2
)

// EmbedField represents one field of a message embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter represents the footer of a message embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// Embed represents a message embed on the wire
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// ComponentEmoji represents a button emoji on the wire
type ComponentEmoji struct {
	Name string `json:"name"`
}

// Component represents an action row or button on the wire
type Component struct {
	Type       int             `json:"type"`
	Style      int             `json:"style,omitempty"`
	Label      string          `json:"label,omitempty"`
	CustomID   string          `json:"custom_id,omitempty"`
	Emoji      *ComponentEmoji `json:"emoji,omitempty"`
	Components []Component     `json:"components,omitempty"`
}

// MessagePayload is the create/edit message request body. Components is never
// nil so that an edit without controls clears any buttons on the message.
type MessagePayload struct {
	Embeds     []Embed     `json:"embeds"`
	Components []Component `json:"components"`
}

// NewMessagePayload converts a rendered display unit into its wire shape.
func NewMessagePayload(unit render.DisplayUnit) MessagePayload {
	embed := Embed{
		Title:       unit.Title,
		Description: unit.Body,
		Color:       unit.Color,
	}
	if !unit.Timestamp.IsZero() {
		embed.Timestamp = unit.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range unit.Fields {
		embed.Fields = append(embed.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if unit.Footer != "" {
		embed.Footer = &EmbedFooter{Text: unit.Footer}
	}

	payload := MessagePayload{
		Embeds:     []Embed{embed},
		Components: []Component{},
	}

	if len(unit.Controls) > 0 {
		row := Component{Type: ComponentTypeActionRow}
		for _, ctl := range unit.Controls {
			button := Component{
				Type:     ComponentTypeButton,
				Style:    ctl.Style,
				Label:    ctl.Label,
				CustomID: ctl.CustomID,
			}
			if ctl.Emoji != "" {
				button.Emoji = &ComponentEmoji{Name: ctl.Emoji}
			}
			row.Components = append(row.Components, button)
		}
		payload.Components = append(payload.Components, row)
	}

	return payload
}
