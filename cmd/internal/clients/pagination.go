package clients

const (
	defaultPageNumber = 1
	defaultPageSize   = 5
	maxPageSize       = 100
)

// Page is a normalized pagination window.
type Page struct {
	Number int
	Size   int
}

// NormalizePage clamps raw query values into a valid window: page numbers
// start at 1, page size is bounded to [1,100], zero values take defaults.
func NormalizePage(number, size int) Page {
	if number < 1 {
		number = defaultPageNumber
	}
	switch {
	case size < 1:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset for SQL queries.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HasNext reports whether another page exists given the total match count.
func (p Page) HasNext(total int) bool {
	return p.Offset()+p.Size < total
}

// HasPrevious reports whether a previous page exists.
func (p Page) HasPrevious() bool {
	return p.Number > 1
}
