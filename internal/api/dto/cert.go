package dto

// CertIssueRequest asks for a new certificate bundle.
type CertIssueRequest struct {
	// CommonName is the certificate subject and first SAN.
	CommonName string `json:"common_name"`

	// SubjectNames are additional DNS names or IP addresses.
	SubjectNames []string `json:"subject_names,omitempty"`

	// ValidityDays is the requested lifetime; zero selects the default.
	ValidityDays int `json:"validity_days,omitempty"`

	// CAPassword is the provisioner password. It is forwarded to the CA
	// agent through a file and never logged.
	CAPassword string `json:"ca_password"`

	// Format is "pem" or "pkcs12"; empty selects pkcs12.
	Format string `json:"format,omitempty"`
}

// BundleResponse describes one certificate bundle.
type BundleResponse struct {
	Directory    string   `json:"directory"`
	CommonName   string   `json:"common_name"`
	DNSNames     []string `json:"dns_names"`
	CreatedAt    string   `json:"created_at"`
	CreatedBy    string   `json:"created_by"`
	ValidityDays int      `json:"validity_days"`
	ExpiresAt    string   `json:"expires_at"`
	Expired      bool     `json:"expired"`
	Files        []string `json:"files"`
}

// BundleDetailResponse describes one bundle plus the agent's parsed view
// of the leaf certificate, when it could be read.
type BundleDetailResponse struct {
	BundleResponse
	Certificate map[string]any `json:"certificate,omitempty"`
}

// CertListResponse lists the cataloged bundles, newest first.
type CertListResponse struct {
	Bundles []BundleResponse `json:"bundles"`
	Total   int              `json:"total"`
}
