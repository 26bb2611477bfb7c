package extract

// ListingConfig holds the selectors used on listing pages. Defaults match
// the KV Thüringen physician search.
type ListingConfig struct {
	DetailLinkSelector string `yaml:"detail_link_selector" env:"KVT_DETAIL_LINK_SELECTOR" env-default:"a[href*='/arztsuche/arztsuche-details']"`
	PaginationSelector string `yaml:"pagination_selector" env:"KVT_PAGINATION_SELECTOR" env-default:"form.pagination input.pagination-button[type='submit'][name='tx_t3kvclient_showclient[page]']"`
	ActiveClass        string `yaml:"active_class" env:"KVT_PAGINATION_ACTIVE_CLASS" env-default:"active"`
}

// DefaultListingConfig returns the selectors of the KV Thüringen search.
func DefaultListingConfig() ListingConfig {
	return ListingConfig{
		DetailLinkSelector: "a[href*='/arztsuche/arztsuche-details']",
		PaginationSelector: "form.pagination input.pagination-button[type='submit'][name='tx_t3kvclient_showclient[page]']",
		ActiveClass:        "active",
	}
}
