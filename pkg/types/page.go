package types

// PageInfo is the metadata recorded for one documentation page. A docs map
// is a JSON array of PageInfo values in page-read order.
type PageInfo struct {
	Title   string   `json:"title" yaml:"title"`
	Address string   `json:"address" yaml:"address"`
	Types   []string `json:"types" yaml:"types"`
}

// Page is a page as read by the host.
type Page struct {
	Title   string
	Address string
	Types   []string
	// Hide excludes the page from the docs map.
	Hide bool
	// Source is the path of the page file relative to the source directory.
	Source string
}

// Info extracts the PageInfo fields from p.
func (p *Page) Info() PageInfo {
	return PageInfo{
		Title:   p.Title,
		Address: p.Address,
		Types:   p.Types,
	}
}

// ReadContext is handed to OnPageRead once per page.
type ReadContext struct {
	// IsDoc reports whether the host flagged the page as documentation.
	IsDoc bool
	// Page is required when IsDoc is true.
	Page *Page
}
