// Package validation checks user-supplied endpoint URLs before they are stored
// or requested.
//
// Cloud metadata endpoints are always rejected. Private and loopback addresses
// are accepted, since local development servers are a common target.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateBaseURL validates a profile or --base-url value. It checks that
// the URL:
//   - Uses http or https scheme
//   - Contains a valid hostname
//   - Carries no query string or fragment
//   - Does not target a cloud metadata endpoint
func ValidateBaseURL(rawURL string) error {
	if err := ValidateRequestURL(rawURL); err != nil {
		return err
	}
	parsedURL, _ := url.Parse(rawURL)
	if parsedURL.RawQuery != "" || parsedURL.Fragment != "" {
		return fmt.Errorf("base URL must not contain a query string or fragment")
	}
	return nil
}

// ValidateRequestURL validates an absolute request target.
func ValidateRequestURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	// Only allow http and https schemes
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must contain a hostname")
	}

	if isCloudMetadata(hostname) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	if ip := net.ParseIP(hostname); ip != nil && ip.IsUnspecified() {
		return fmt.Errorf("unspecified IP addresses are not allowed")
	}
	return nil
}

// isCloudMetadata checks for cloud metadata endpoints
func isCloudMetadata(hostname string) bool {
	lowercase := strings.ToLower(hostname)
	cloudMetadataEndpoints := []string{
		"169.254.169.254",          // AWS, Azure, GCP, DigitalOcean
		"metadata.google.internal", // GCP
		"metadata",                 // Generic
		"instance-data",            // AWS
		"fd00:ec2::254",            // AWS IPv6
	}

	for _, endpoint := range cloudMetadataEndpoints {
		if lowercase == endpoint {
			return true
		}
	}

	// Check for metadata subdomains
	return strings.HasSuffix(lowercase, ".metadata.google.internal")
}
