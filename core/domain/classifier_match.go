package domain

// CandidateMatch is a vector index candidate scored against the current email.
// Confidence combines the raw cosine similarity with a domain weight, so two
// candidates with equal similarity rank by how close their sender domains are.
type CandidateMatch struct {
	ID           string
	Similarity   float64
	DomainWeight float64
	Confidence   float64
	Document     string
	Metadata     map[string]string
}
