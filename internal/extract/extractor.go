package extract

// Reducer turns rendered HTML into a Document. It is the seam the page
// fetcher uses, so a different reduction policy can be swapped in.
type Reducer interface {
	Reduce(input []byte) (Document, error)
}

// Heuristic strips boilerplate, picks the root via MainSelectors, and
// reduces it to plain text.
type Heuristic struct{}

func (Heuristic) Reduce(input []byte) (Document, error) {
	return Parse(input)
}
