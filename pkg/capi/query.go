package capi

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryParams holds the list query options understood by the Cloud Controller.
type QueryParams struct {
	Page          int
	PerPage       int
	OrderBy       string
	LabelSelector string
	Include       []string
	Fields        map[string][]string
	Filters       map[string][]string
}

// NewQueryParams returns empty query parameters.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Fields:  make(map[string][]string),
		Filters: make(map[string][]string),
	}
}

// ToValues encodes the parameters as URL values. Multi-valued options are
// joined with commas.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}

	if q.OrderBy != "" {
		values.Set("order_by", q.OrderBy)
	}

	if q.LabelSelector != "" {
		values.Set("label_selector", q.LabelSelector)
	}

	if len(q.Include) > 0 {
		values.Set("include", strings.Join(q.Include, ","))
	}

	for resource, fields := range q.Fields {
		if len(fields) > 0 {
			values.Set("fields["+resource+"]", strings.Join(fields, ","))
		}
	}

	for key, filter := range q.Filters {
		if len(filter) > 0 {
			values.Set(key, strings.Join(filter, ","))
		}
	}

	return values
}

// WithPage sets the page number.
func (q *QueryParams) WithPage(page int) *QueryParams {
	q.Page = page

	return q
}

// WithPerPage sets the page size.
func (q *QueryParams) WithPerPage(perPage int) *QueryParams {
	q.PerPage = perPage

	return q
}

// WithOrderBy sets the ordering field, prefixed with "-" for descending.
func (q *QueryParams) WithOrderBy(orderBy string) *QueryParams {
	q.OrderBy = orderBy

	return q
}

// WithLabelSelector sets the label selector.
func (q *QueryParams) WithLabelSelector(selector string) *QueryParams {
	q.LabelSelector = selector

	return q
}

// WithInclude appends included resources.
func (q *QueryParams) WithInclude(include ...string) *QueryParams {
	q.Include = append(q.Include, include...)

	return q
}

// WithFields replaces the field selection for a resource.
func (q *QueryParams) WithFields(resource string, fields ...string) *QueryParams {
	if q.Fields == nil {
		q.Fields = make(map[string][]string)
	}

	q.Fields[resource] = fields

	return q
}

// WithFilter appends values to a filter.
func (q *QueryParams) WithFilter(key string, values ...string) *QueryParams {
	if q.Filters == nil {
		q.Filters = make(map[string][]string)
	}

	q.Filters[key] = append(q.Filters[key], values...)

	return q
}
