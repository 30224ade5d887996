package models

import "time"

// Comment is a message left on a report. Comments are append-only.
type Comment struct {
	ID         string    `json:"id" firestore:"-"`
	PersonID   string    `json:"person_id" firestore:"personId"`
	AuthorName string    `json:"author_name" firestore:"authorName"`
	Message    string    `json:"message" firestore:"message"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

type CommentInput struct {
	AuthorName string `json:"author_name" conform:"trim" validate:"required"`
	Message    string `json:"message" conform:"trim" validate:"required"`
}
