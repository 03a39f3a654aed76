// Package catrust serves the CA trust material: the root and intermediate
// certificates step-ca maintains on disk. The console only ever reads
// these files; an absent file is a normal outcome, not an error.
package catrust

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnavailable is returned when a trust file does not exist.
var ErrUnavailable = errors.New("trust material unavailable")

// Distributor reads CA trust material from the configured paths.
type Distributor struct {
	rootPath         string
	intermediatePath string
	caConfigPath     string
}

// New creates a Distributor over the step-ca file layout.
func New(rootPath, intermediatePath, caConfigPath string) *Distributor {
	return &Distributor{
		rootPath:         rootPath,
		intermediatePath: intermediatePath,
		caConfigPath:     caConfigPath,
	}
}

// Root returns the root CA certificate.
func (d *Distributor) Root() ([]byte, error) {
	return readTrustFile(d.rootPath)
}

// Intermediate returns the intermediate CA certificate.
func (d *Distributor) Intermediate() ([]byte, error) {
	return readTrustFile(d.intermediatePath)
}

// Bundle returns the intermediate concatenated with the root, the order
// TLS servers expect for a trust bundle. Both files must be present.
func (d *Distributor) Bundle() ([]byte, error) {
	intermediate, err := d.Intermediate()
	if err != nil {
		return nil, err
	}
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	return append(append(intermediate, '\n'), root...), nil
}

// Info is a summary of the CA configuration.
type Info struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	DNSNames     []string `json:"dns_names"`
	Provisioners int      `json:"provisioners"`
}

// Info parses step-ca's ca.json for display on the console dashboard.
func (d *Distributor) Info() (*Info, error) {
	data, err := readTrustFile(d.caConfigPath)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Address   string   `json:"address"`
		DNSNames  []string `json:"dnsNames"`
		Authority struct {
			Name         string            `json:"name"`
			Provisioners []json.RawMessage `json:"provisioners"`
		} `json:"authority"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse CA configuration: %w", err)
	}

	info := &Info{
		Name:         raw.Authority.Name,
		Address:      raw.Address,
		DNSNames:     raw.DNSNames,
		Provisioners: len(raw.Authority.Provisioners),
	}
	if info.Name == "" {
		info.Name = "Unknown"
	}
	if info.Address == "" {
		info.Address = "Unknown"
	}
	return info, nil
}

func readTrustFile(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrUnavailable
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
