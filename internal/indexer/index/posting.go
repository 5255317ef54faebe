package index

// Field weights applied per token occurrence.
const (
	TitleWeight       = 10.0
	DescriptionWeight = 5.0
	KeywordWeight     = 20.0
)

// WordPosting records one occurrence of a term in a document field.
type WordPosting struct {
	Position int
	Weight   float64
}

// WordPostingList is the ordered posting list of a single term.
type WordPostingList []WordPosting

// KeywordPostingList holds the positions of documents tagged with a keyword,
// one entry per tag occurrence.
type KeywordPostingList []int
