package oauthprov

// Package oauthprov implements OAuth2 identity providers for the login
// broker: GitHub and Yandex over plain OAuth2 REST profiles, plus a generic
// OIDC provider for discovery-capable IdPs.

import (
	"encoding/json"
	"fmt"
	"strconv"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
)

// profileMapping holds the JMESPath expressions that pull identity fields out
// of a provider's profile payload. Claim-shape drift between providers is a
// mapping change, not a code change.
type profileMapping struct {
	ExternalID  string
	Login       string
	Email       string
	DisplayName string
}

// extractIdentity decodes a raw profile document and maps it into a
// normalized Identity using the provider's field expressions.
func extractIdentity(provider string, raw []byte, m profileMapping) (domainauth.Identity, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domainauth.Identity{}, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
			"decode %s profile", provider)
	}

	id := domainauth.Identity{Provider: provider}
	fields := []struct {
		expr string
		dst  *string
	}{
		{m.ExternalID, &id.ExternalID},
		{m.Login, &id.Login},
		{m.Email, &id.Email},
		{m.DisplayName, &id.DisplayName},
	}
	for _, f := range fields {
		if f.expr == "" {
			continue
		}
		val, err := searchString(f.expr, doc)
		if err != nil {
			return domainauth.Identity{}, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
				"extract %s profile field", provider)
		}
		*f.dst = val
	}

	if id.ExternalID == "" && id.Login == "" {
		return domainauth.Identity{}, apperrors.Upstream(
			fmt.Sprintf("%s profile carries no usable identifier", provider))
	}

	return domainauth.NormalizeIdentity(id), nil
}

// searchString evaluates a JMESPath expression and coerces the result to a
// string. Numeric IDs (GitHub) are rendered without an exponent; null and
// missing fields collapse to "".
func searchString(expr string, doc any) (string, error) {
	val, err := jmespath.Search(expr, doc)
	if err != nil {
		return "", err
	}
	switch v := val.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
