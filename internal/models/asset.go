package models

// AssetRef is a stored file's public reference. Its shape matches the
// record service's attachment objects so asset lists can be written to
// image fields directly. Bucket entries persist independently of any
// record that references them.
type AssetRef struct {
	URL string `json:"url"`
}
