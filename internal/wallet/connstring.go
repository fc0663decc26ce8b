package wallet

import (
	"errors"
	"strings"
)

const ConnectionStringType = "breezspark"

var ErrMissingKey = errors.New("The key 'key' is mandatory for breezspark connection strings")

// ParseConnectionString reads "type=breezspark;key=<paymentKey>". ours is
// false for connection strings of any other type.
func ParseConnectionString(s string) (key string, ours bool, err error) {
	values := map[string]string{}
	for _, part := range strings.Split(s, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		values[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	if !strings.EqualFold(values["type"], ConnectionStringType) {
		return "", false, nil
	}
	key, ok := values["key"]
	if !ok || key == "" {
		return "", true, ErrMissingKey
	}
	return key, true, nil
}

// ClientFromConnectionString resolves a breezspark connection string to the
// client holding its payment key. Connection strings of other types yield nil
// without error.
func (s *Service) ClientFromConnectionString(conn string) (*Client, error) {
	key, ours, err := ParseConnectionString(conn)
	if !ours || err != nil {
		return nil, err
	}
	return s.GetClientByPaymentKey(key), nil
}
