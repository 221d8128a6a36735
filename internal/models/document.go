package models

import "time"

// StoredDocument is the record a document store keeps for one ingested upload.
// It is readable by ID until ExpiresAt has passed.
type StoredDocument struct {
	ID        string    `firestore:"-" json:"id"`
	Text      string    `firestore:"text" json:"text"`
	Filename  string    `firestore:"filename" json:"filename"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `firestore:"expiresAt" json:"expiresAt"`
}

// Expired reports whether the record is past its expiry at now.
func (d *StoredDocument) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// ChatLogEntry is one answered question, kept for the /logs view.
type ChatLogEntry struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}
