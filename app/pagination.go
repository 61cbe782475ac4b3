package app

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// maxPage keeps (page-1)*maxPageSize far from int overflow.
	maxPage = 1_000_000
)

type pagination struct {
	Page     int
	PageSize int
	Offset   int
}

// paginate clamps the requested page and page size into a safe window.
func paginate(page, pageSize int) pagination {
	page = min(max(page, 1), maxPage)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	return pagination{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

func (p pagination) totalPages(totalItems int) int {
	return (totalItems + p.PageSize - 1) / p.PageSize
}
