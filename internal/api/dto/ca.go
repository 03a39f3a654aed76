package dto

// CAInfoResponse summarizes the CA configuration.
type CAInfoResponse struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	DNSNames     []string `json:"dns_names"`
	Provisioners int      `json:"provisioners"`
}
