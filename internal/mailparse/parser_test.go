package mailparse

import (
	"errors"
	"testing"

	"attachment-ingestor/internal/mailparse/mailtest"
	"attachment-ingestor/internal/models"
)

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "Plain ASCII",
			input:    "Hello World",
			expected: "Hello World",
			wantErr:  false,
		},
		{
			name:     "UTF-8 encoded",
			input:    "=?UTF-8?Q?Rapport_quotidien_=C3=A0_traiter?=",
			expected: "Rapport quotidien à traiter",
			wantErr:  false,
		},
		{
			name:     "ISO-8859-1 encoded",
			input:    "=?ISO-8859-1?Q?Caf=E9?=",
			expected: "Café",
			wantErr:  false,
		},
		{
			name:     "Base64 encoded",
			input:    "=?UTF-8?B?SGVsbG8gV29ybGQ=?=",
			expected: "Hello World",
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHeader(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeHeader() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.expected {
				t.Errorf("DecodeHeader() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecode_Sender(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		expected string
	}{
		{
			name:     "Simple email",
			from:     "example_brand@example.com",
			expected: "example_brand@example.com",
		},
		{
			name:     "Email with name",
			from:     "Example Brand <Example_Brand@Example.COM>",
			expected: "example_brand@example.com",
		},
		{
			name:     "Email with quotes",
			from:     `"Reports, Team" <reports@example.com>`,
			expected: "reports@example.com",
		},
		{
			name:     "Unencoded 8-bit display name",
			from:     "J\xe9r\xf4me Dupont <Jerome@Example.com>",
			expected: "jerome@example.com",
		},
		{
			name:     "Unquoted specials in display name",
			from:     "Reports [auto] <Reports@Example.com>",
			expected: "reports@example.com",
		},
		{
			name:     "No email",
			from:     "Just some text",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(mailtest.Plain(tt.from, "hi"))
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if msg.From != tt.expected {
				t.Errorf("From = %q, want %q", msg.From, tt.expected)
			}
		})
	}
}

func TestDecode_MissingFrom(t *testing.T) {
	msg, err := Decode([]byte("Subject: no sender\r\n\r\nbody\r\n"))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.From != "" {
		t.Errorf("Expected empty sender, got %q", msg.From)
	}
}

func TestDecode_Attachments(t *testing.T) {
	csv := []byte("Order ID,Qty\r\nA1,5\r\n")
	binary := []byte{0x00, 0xff, 0x10, 0x80}

	raw := mailtest.Build("Example_Brand@example.com", "see attached",
		models.Attachment{Filename: "data.csv", ContentType: "text/csv", Content: csv},
		models.Attachment{ContentType: "application/octet-stream", Content: binary},
		models.Attachment{Filename: "report.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Content: binary},
	)

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if !msg.Multipart {
		t.Fatal("Expected multipart message")
	}
	if msg.From != "example_brand@example.com" {
		t.Errorf("From = %q", msg.From)
	}
	if msg.Subject != "Daily report" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if len(msg.Defects) != 0 {
		t.Errorf("Unexpected defects: %v", msg.Defects)
	}

	if len(msg.Attachments) != 3 {
		t.Fatalf("Expected 3 attachments (body part excluded), got %d", len(msg.Attachments))
	}

	first := msg.Attachments[0]
	if first.Filename != "data.csv" {
		t.Errorf("Attachments[0].Filename = %q", first.Filename)
	}
	if string(first.Content) != string(csv) {
		t.Errorf("Attachments[0].Content = %q, want %q", first.Content, csv)
	}
	if first.ContentType != "text/csv" {
		t.Errorf("Attachments[0].ContentType = %q", first.ContentType)
	}

	if msg.Attachments[1].Filename != "" {
		t.Errorf("Expected unnamed attachment, got %q", msg.Attachments[1].Filename)
	}
	if string(msg.Attachments[1].Content) != string(binary) {
		t.Errorf("Binary payload not decoded: %v", msg.Attachments[1].Content)
	}

	if msg.Attachments[2].Filename != "report.xlsx" {
		t.Errorf("Attachments[2].Filename = %q", msg.Attachments[2].Filename)
	}
}

func TestDecode_NotMultipart(t *testing.T) {
	msg, err := Decode(mailtest.Plain("example_brand@example.com", "Order ID,Qty\nA1,5"))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.Multipart {
		t.Error("Expected single-part message")
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("Expected no attachments, got %d", len(msg.Attachments))
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "Empty", raw: nil},
		{name: "No header colon", raw: []byte("this is not an email\r\n\r\nbody")},
		{name: "Binary", raw: []byte{0x00, 0x01, 0xfe, 0xff, '\n', 0x02}},
		{name: "Leading whitespace", raw: []byte("  folded: line\r\n\r\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.raw)
			if err == nil {
				t.Fatalf("Expected error, got message %+v", msg)
			}
			if !errors.Is(err, ErrMalformedEnvelope) {
				t.Errorf("Expected ErrMalformedEnvelope, got %v", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("Expected *DecodeError, got %T", err)
			}
		})
	}
}

func TestDecode_UnknownCharsetAttachment(t *testing.T) {
	raw := mailtest.Build("example_brand@example.com", "two files",
		models.Attachment{Filename: "a.csv", ContentType: "text/csv; charset=x-bogus", Content: []byte("A,B\n1,2\n")},
		models.Attachment{Filename: "b.csv", ContentType: "text/csv", Content: []byte("C,D\n3,4\n")},
	)

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("Expected 2 attachments, got %d (defects: %v)", len(msg.Attachments), msg.Defects)
	}
	if msg.Attachments[0].Filename != "a.csv" || string(msg.Attachments[0].Content) != "A,B\n1,2\n" {
		t.Errorf("Attachments[0] = %q %q", msg.Attachments[0].Filename, msg.Attachments[0].Content)
	}
	if msg.Attachments[1].Filename != "b.csv" {
		t.Errorf("Attachments[1].Filename = %q", msg.Attachments[1].Filename)
	}
	if len(msg.Defects) != 1 {
		t.Errorf("Expected the unknown charset as one defect, got %v", msg.Defects)
	}
}

func TestDecode_UnknownCharsetBody(t *testing.T) {
	raw := []byte("From: example_brand@example.com\r\n" +
		"Subject: odd charset\r\n" +
		"Content-Type: text/plain; charset=x-bogus\r\n" +
		"\r\n" +
		"body\r\n")

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.From != "example_brand@example.com" {
		t.Errorf("From = %q", msg.From)
	}
	if msg.Multipart || len(msg.Attachments) != 0 {
		t.Errorf("Expected single-part message without attachments, got %+v", msg)
	}
	if len(msg.Defects) != 1 {
		t.Errorf("Expected the unknown charset as one defect, got %v", msg.Defects)
	}
}

func TestDecode_NamedPartsWithoutDisposition(t *testing.T) {
	raw := []byte("From: example_brand@example.com\r\n" +
		"Subject: report\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"unnamed second text part\r\n" +
		"--b1\r\n" +
		"Content-Type: text/csv; name=\"data.csv\"\r\n" +
		"\r\n" +
		"Order ID,Qty\r\n" +
		"A1,5\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; name=\"notes.txt\"\r\n" +
		"\r\n" +
		"notes\r\n" +
		"--b1--\r\n")

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("Expected 2 named attachments, got %d: %+v", len(msg.Attachments), msg.Attachments)
	}
	if msg.Attachments[0].Filename != "data.csv" || msg.Attachments[0].ContentType != "text/csv" {
		t.Errorf("Attachments[0] = %q (%s)", msg.Attachments[0].Filename, msg.Attachments[0].ContentType)
	}
	if string(msg.Attachments[0].Content) != "Order ID,Qty\r\nA1,5" {
		t.Errorf("Attachments[0].Content = %q", msg.Attachments[0].Content)
	}
	if msg.Attachments[1].Filename != "notes.txt" {
		t.Errorf("Attachments[1].Filename = %q", msg.Attachments[1].Filename)
	}
}
