package model

import "time"

// Session is a chat conversation kept by the dev backend so repeated
// requests with the same chat_id continue one conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
