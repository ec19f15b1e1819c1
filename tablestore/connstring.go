/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/suparena/entityrepo/errors"
)

// Development storage defaults, matching a local DynamoDB container.
const (
	DevelopmentRegion      = "us-east-1"
	DevelopmentAccountName = "devstoreaccount"
	DevelopmentAccountKey  = "devstoreaccountkey"
	DevelopmentEndpoint    = "http://localhost:8000"
)

var (
	regionPattern      = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)
	accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,128}$`)
)

const minAccountKeyLength = 8

// Settings are the parts of a table store connection string.
type Settings struct {
	Region      string
	AccountName string
	AccountKey  string
	// Endpoint overrides the service endpoint. Empty uses the regional default.
	Endpoint string
}

// String renders the settings with the account key redacted.
func (s Settings) String() string {
	str := fmt.Sprintf("Region=%s;AccountName=%s;AccountKey=***", s.Region, s.AccountName)
	if s.Endpoint != "" {
		str += ";Endpoint=" + s.Endpoint
	}
	return str
}

// ParseConnectionString parses `Region=..;AccountName=..;AccountKey=..[;Endpoint=..]`
// or `UseDevelopmentStorage=true[;Endpoint=..]`. Keys are case-insensitive.
// Failures are ConfigFormatErrors carrying one of four reasons.
func ParseConnectionString(connectionString string) (Settings, error) {
	if strings.TrimSpace(connectionString) == "" {
		return Settings{}, malformed("connection string is empty")
	}

	parts := make(map[string]string)
	for _, segment := range strings.Split(connectionString, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, value, ok := strings.Cut(segment, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return Settings{}, malformed(fmt.Sprintf("segment %q is not a key=value pair", segment))
		}
		switch name {
		case "region", "accountname", "accountkey", "endpoint", "usedevelopmentstorage":
		default:
			return Settings{}, malformed(fmt.Sprintf("unknown setting %q", name))
		}
		if _, dup := parts[name]; dup {
			return Settings{}, malformed(fmt.Sprintf("setting %q appears more than once", name))
		}
		parts[name] = strings.TrimSpace(value)
	}

	var s Settings
	if dev, ok := parts["usedevelopmentstorage"]; ok {
		if !strings.EqualFold(dev, "true") {
			return Settings{}, malformed("UseDevelopmentStorage only accepts true")
		}
		for name := range parts {
			if name != "usedevelopmentstorage" && name != "endpoint" {
				return Settings{}, malformed(fmt.Sprintf("setting %q cannot be combined with UseDevelopmentStorage", name))
			}
		}
		s = Settings{
			Region:      DevelopmentRegion,
			AccountName: DevelopmentAccountName,
			AccountKey:  DevelopmentAccountKey,
			Endpoint:    DevelopmentEndpoint,
		}
		if endpoint, ok := parts["endpoint"]; ok {
			s.Endpoint = endpoint
		}
	} else {
		s = Settings{
			Region:      parts["region"],
			AccountName: parts["accountname"],
			AccountKey:  parts["accountkey"],
			Endpoint:    parts["endpoint"],
		}
	}

	if !regionPattern.MatchString(s.Region) {
		return Settings{}, malformed(fmt.Sprintf("missing or invalid region %q", s.Region))
	}
	if !accountNamePattern.MatchString(s.AccountName) {
		return Settings{}, errors.NewConfigFormatError(errors.UnrecognizedAccountName,
			fmt.Sprintf("%q is not an account name", s.AccountName), nil)
	}
	if err := checkAccountKey(s.AccountKey); err != nil {
		return Settings{}, err
	}
	if s.Endpoint != "" {
		if err := checkEndpoint(s.Endpoint); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

func malformed(detail string) error {
	return errors.NewConfigFormatError(errors.MalformedConnectionString, detail, nil)
}

func checkAccountKey(key string) error {
	if len(key) < minAccountKeyLength {
		return errors.NewConfigFormatError(errors.InvalidAccountCredential,
			fmt.Sprintf("account key must be at least %d characters", minAccountKeyLength), nil)
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return errors.NewConfigFormatError(errors.InvalidAccountCredential, "account key contains whitespace", nil)
	}
	return nil
}

func checkEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.NewConfigFormatError(errors.InvalidEndpoint, endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewConfigFormatError(errors.InvalidEndpoint,
			fmt.Sprintf("scheme %q is not http or https", u.Scheme), nil)
	}
	if u.Host == "" {
		return errors.NewConfigFormatError(errors.InvalidEndpoint, "endpoint has no host", nil)
	}
	return nil
}
