package records

// Well-known collector columns. Lookups are case-insensitive.
const (
	TitleColumn       = "title"
	DescriptionColumn = "description"
	CompanyColumn     = "company"
	RawResponseColumn = "raw_response"
)

// URLColumns are tried in order to find the posting URL, the identity key of a record.
var URLColumns = []string{"job_url", "job_url_direct", "url"}
