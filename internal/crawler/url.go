package crawler

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// trackingParams are query parameters stripped during normalization so
// that otherwise-identical URLs dedupe to one visited-set entry.
var trackingParams = map[string]bool{
	"ref":      true,
	"fbclid":   true,
	"gclid":    true,
	"msclkid":  true,
	"mc_cid":   true,
	"mc_eid":   true,
	"igshid":   true,
	"_hsenc":   true,
	"_hsmi":    true,
	"yclid":    true,
	"vero_id":  true,
	"wickedid": true,
}

// skipExtensions are asset types never enqueued for crawling.
var skipExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".css": true, ".js": true, ".mjs": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".rar": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true,
	".pptx": true, ".exe": true, ".dmg": true, ".apk": true,
}

func isTrackingParam(name string) bool {
	if strings.HasPrefix(name, "utm_") {
		return true
	}
	return trackingParams[name]
}

// Normalize canonicalizes a URL for visited-set membership: lowercase
// scheme and host, default ports and fragments removed, tracking
// parameters stripped, remaining query sorted, and the trailing slash
// trimmed from non-root paths. Relative references are resolved
// against base when base is non-empty.
func Normalize(rawURL, base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	if base != "" && !u.IsAbs() {
		bu, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parse base url %q: %w", base, err)
		}
		u = bu.ResolveReference(u)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	if port := u.Port(); port != "" {
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			u.Host = host
		}
	}

	q := u.Query()
	for name := range q {
		if isTrackingParam(name) {
			q.Del(name)
		}
	}
	u.RawQuery = sortedEncode(q)

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// sortedEncode encodes query values with keys in stable order.
func sortedEncode(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for _, v := range vals {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

// IsAsset reports whether a URL points at a static asset that should
// never enter the frontier.
func IsAsset(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return skipExtensions[ext]
}

// SameDomain reports whether two URLs share a registrable host. The
// www prefix is ignored so www.example.com and example.com crawl as
// one site.
func SameDomain(a, b string) bool {
	ha, err := hostOf(a)
	if err != nil {
		return false
	}
	hb, err := hostOf(b)
	if err != nil {
		return false
	}
	return ha == hb
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	h := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(h, "www."), nil
}

// Domain extracts the lowercase hostname used as the rate-limiter and
// robots cache key.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
