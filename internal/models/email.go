package models

// Message represents a decoded inbound email
type Message struct {
	From        string
	Subject     string
	Multipart   bool
	Attachments []Attachment

	// Defects lists parts of a damaged multipart body that were dropped
	Defects []error
}

// Attachment is a named binary payload carried by a message part
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
