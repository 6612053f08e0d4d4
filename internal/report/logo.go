package report

import (
	"encoding/base64"
	"hash/fnv"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var palette = []string{
	"#1abc9c", "#2ecc71", "#3498db", "#9b59b6", "#34495e",
	"#16a085", "#27ae60", "#2980b9", "#8e44ad", "#e67e22",
	"#e74c3c", "#d35400", "#c0392b", "#7f8c8d",
}

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",
}

// Logo is either an image source or an initials placeholder.
type Logo struct {
	Src      template.URL
	Initials string
	Color    template.CSS
}

func (l Logo) IsImage() bool { return l.Src != "" }

// ResolveLogo tries the record value, then the default logo, as a URL or an
// existing local image file (relative paths are resolved against baseDir). Otherwise it
// returns a placeholder whose color depends only on the company name.
func ResolveLogo(value, defaultLogo, company, baseDir string) Logo {
	for _, candidate := range []string{value, defaultLogo} {
		if src, ok := logoSource(strings.TrimSpace(candidate), baseDir); ok {
			return Logo{Src: src}
		}
	}
	return Placeholder(company)
}

func Placeholder(company string) Logo {
	return Logo{Initials: Initials(company), Color: template.CSS(PaletteColor(company))}
}

// PaletteColor hashes the trimmed company name into the fixed palette.
func PaletteColor(company string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(company)))
	return palette[h.Sum32()%uint32(len(palette))]
}

// Initials returns up to two uppercase initials, or "?" for a blank name.
func Initials(company string) string {
	var out []rune
	for _, word := range strings.Fields(company) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

func logoSource(value, baseDir string) (template.URL, bool) {
	if value == "" {
		return "", false
	}

	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return template.URL(value), true
	}

	path := value
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	// Only image files are inlined into the report.
	mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", false
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)), true
}
