package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDossier  ResultType = "dossier"
	ResultDecision ResultType = "decision"
	ResultTask     ResultType = "task"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	DossierID string     `json:"dossierId"`
	Status    string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterStatus string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexDossier(d DossierRecord) error
	IndexDecision(d DecisionRecord) error
	IndexTask(t TaskRecord) error
}

// DossierRecord is the data we index for a dossier.
type DossierRecord struct {
	ID             string `json:"id"`
	DossierNumber  string `json:"dossierNumber"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	SenderMinistry string `json:"senderMinistry"`
	Status         string `json:"status"`
}

// DecisionRecord is the data we index for a decision.
type DecisionRecord struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Status    string `json:"status"`
	DossierID string `json:"dossierId"`
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DossierID   string `json:"dossierId"`
}
