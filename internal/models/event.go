package models

// Event mirrors an object-created notification: the first record names the
// bucket and key of the raw email to process.
type Event struct {
	Records []EventRecord `json:"Records"`
}

type EventRecord struct {
	S3 S3Entity `json:"s3"`
}

type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key string `json:"key"`
}

// Location returns the bucket and key of the first record
func (e Event) Location() (bucket, key string, ok bool) {
	if len(e.Records) == 0 {
		return "", "", false
	}
	r := e.Records[0].S3
	if r.Bucket.Name == "" || r.Object.Key == "" {
		return "", "", false
	}
	return r.Bucket.Name, r.Object.Key, true
}
