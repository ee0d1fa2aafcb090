// Package decode guesses the text encoding and field delimiter of an export
// file and transcodes it to UTF-8.
package decode

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DefaultSampleSize is the byte prefix handed to the encoding detector.
	DefaultSampleSize = 10000

	// LabelUTF8BOM is UTF-8 with a leading byte order mark, as written by the payment service.
	LabelUTF8BOM = "utf-8-sig"
	// LabelLatin1 is the legacy single-byte encoding of the history artifacts.
	LabelLatin1 = "ISO-8859-1"
	// LabelUTF8 is used when the detector has nothing to go on.
	LabelUTF8 = "UTF-8"
)

// Detector guesses encodings and delimiters. Guesses are never validated;
// callers tolerate wrong guesses by failing rows, not files.
type Detector interface {
	// DetectEncoding returns a best-guess encoding label for a byte sample.
	DetectEncoding(sample []byte) (string, error)

	// DetectDelimiter returns the field delimiter for a header line.
	DetectDelimiter(firstLine string) rune
}

// ChardetDetector runs statistical charset detection.
type ChardetDetector struct {
	detector *chardet.Detector
}

// NewChardetDetector creates a detector for plain-text samples.
func NewChardetDetector() *ChardetDetector {
	return &ChardetDetector{detector: chardet.NewTextDetector()}
}

// DetectEncoding implements Detector.
func (d *ChardetDetector) DetectEncoding(sample []byte) (string, error) {
	if len(sample) == 0 {
		return LabelUTF8, nil
	}
	if bytes.HasPrefix(sample, utf8BOM) {
		return LabelUTF8BOM, nil
	}
	res, err := d.detector.DetectBest(sample)
	if err != nil {
		return "", fmt.Errorf("DetectEncoding: %w", err)
	}
	return res.Charset, nil
}

// DetectDelimiter implements Detector.
func (d *ChardetDetector) DetectDelimiter(firstLine string) rune {
	return DetectDelimiter(firstLine)
}

// DetectDelimiter returns ',' if the line contains a comma, else ';'.
func DetectDelimiter(firstLine string) rune {
	if strings.Contains(firstLine, ",") {
		return ','
	}
	return ';'
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options pins parts of the dialect. Zero values mean "detect".
type Options struct {
	Encoding   string
	Delimiter  rune
	SampleSize int
}

// Dialect is what was used to read one file.
type Dialect struct {
	Encoding  string
	Delimiter rune
}

// Decoded is a file transcoded to UTF-8 together with its dialect.
type Decoded struct {
	Dialect Dialect
	Text    []byte
}

// Sniff detects (or takes from opts) the encoding, transcodes data to UTF-8
// and detects the delimiter from the first decoded line.
func Sniff(ctx context.Context, det Detector, name string, data []byte, opts Options) (*Decoded, error) {
	log := logger.FromContext(ctx)

	label := opts.Encoding
	if label == "" {
		size := opts.SampleSize
		if size <= 0 {
			size = DefaultSampleSize
		}
		sample := data
		if len(sample) > size {
			sample = sample[:size]
		}
		detected, err := det.DetectEncoding(sample)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Encoding detection failed, assuming UTF-8")
			detected = LabelUTF8
		}
		if _, err := Lookup(detected); err != nil {
			log.Warn().Str("file", name).Str("detected", detected).Msg("Detected encoding is not supported, assuming ISO-8859-1")
			detected = LabelLatin1
		}
		label = detected
	}

	text, err := Decode(data, label)
	if err != nil {
		return nil, fmt.Errorf("Sniff: %s: %w", name, err)
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = det.DetectDelimiter(firstLine(text))
	}

	log.Info().
		Str("file", name).
		Str("encoding", label).
		Str("delimiter", string(delim)).
		Msg("Detected file dialect")

	return &Decoded{
		Dialect: Dialect{Encoding: label, Delimiter: delim},
		Text:    text,
	}, nil
}

// Decode transcodes data from the labelled encoding to UTF-8. A leading byte
// order mark is dropped whatever the label says.
func Decode(data []byte, label string) ([]byte, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("Decode: %s: %v: %w", label, err, domain.ErrSourceUnreadable)
	}
	return out, nil
}

// Lookup resolves an encoding label to an encoding.
func Lookup(label string) (encoding.Encoding, error) {
	norm := strings.ToLower(strings.TrimSpace(label))
	switch norm {
	case "", "ascii", "utf-8", "utf8":
		return unicode.UTF8, nil
	case LabelUTF8BOM, "utf-8-bom":
		return unicode.UTF8BOM, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	}
	if enc, err := ianaindex.IANA.Encoding(norm); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(norm); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("Lookup: unknown encoding %q: %w", label, domain.ErrSourceUnreadable)
}

func firstLine(text []byte) string {
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimRight(string(text[:i]), "\r")
	}
	return string(text)
}
