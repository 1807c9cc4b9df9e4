package story

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Encoding is unicode encoding detected from byte order mark.
type Encoding int

const (
	EncUnknown Encoding = iota
	EncUTF8
	EncUTF16BigEndian
	EncUTF16LittleEndian
	EncUTF32BigEndian
	EncUTF32LittleEndian
)

func (e Encoding) String() string {
	switch e {
	case EncUnknown:
		return "unknown"
	case EncUTF8:
		return "utf-8"
	case EncUTF16BigEndian:
		return "utf-16be"
	case EncUTF16LittleEndian:
		return "utf-16le"
	case EncUTF32BigEndian:
		return "utf-32be"
	case EncUTF32LittleEndian:
		return "utf-32le"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// how much of the file we look at
const sniffLen = 1024

var storyType = filetype.NewType("story", "application/x-docflow-story+xml")

func init() {
	filetype.AddMatcher(storyType, matchStory)
}

func matchStory(buf []byte) bool {
	buf = bytes.TrimLeft(buf, " \t\r\n")
	if len(buf) == 0 || buf[0] != '<' {
		return false
	}
	return bytes.Contains(buf[:min(len(buf), sniffLen)], []byte("<story"))
}

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

func detectUTF(buf []byte) Encoding {
	switch {
	// order matters, UTF-32LE BOM starts with UTF-16LE one
	case isUTF32BigEndianBOM4(buf):
		return EncUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return EncUTF32LittleEndian
	case isUTF8BOM3(buf):
		return EncUTF8
	case isUTF16BigEndianBOM2(buf):
		return EncUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return EncUTF16LittleEndian
	}
	return EncUnknown
}

// SelectReader returns reader producing UTF-8 without BOM for input in
// encoding enc. Input of unknown encoding is returned as is, XML decoder will
// look at the declaration.
func SelectReader(r io.Reader, enc Encoding) io.Reader {
	switch enc {
	case EncUnknown:
		return r
	case EncUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case EncUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case EncUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case EncUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case EncUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	}
	// this should never happen
	panic(fmt.Sprintf("unexpected encoding %d", enc))
}

func hasStoryExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".story", ".xml":
		return true
	}
	return false
}

// sniff checks head of the file and reports whether it is a story and its
// encoding.
func sniff(head []byte) (bool, Encoding) {
	enc := detectUTF(head)
	if enc != EncUnknown {
		// partial rune at the end of the head is replaced, not reported
		decoded, _ := io.ReadAll(SelectReader(bytes.NewReader(head), enc))
		head = decoded
	}
	return filetype.IsType(head, storyType), enc
}

func readHead(r io.Reader) ([]byte, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

// IsArchiveFile reports whether file at path is a zip archive.
func IsArchiveFile(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	head, err := readHead(file)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

// IsStoryFile reports whether file at path is a story document and which BOM
// it starts with.
func IsStoryFile(path string) (bool, Encoding, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, EncUnknown, err
	}
	defer file.Close()

	if !hasStoryExt(path) {
		return false, EncUnknown, nil
	}
	head, err := readHead(file)
	if err != nil {
		return false, EncUnknown, err
	}
	ok, enc := sniff(head)
	if !ok {
		return false, EncUnknown, nil
	}
	return true, enc, nil
}

// IsStoryInArchive is IsStoryFile for archive entries.
func IsStoryInArchive(f *zip.File) (bool, Encoding, error) {
	if !hasStoryExt(f.FileHeader.Name) {
		return false, EncUnknown, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, EncUnknown, err
	}
	defer r.Close()

	head, err := readHead(r)
	if err != nil {
		return false, EncUnknown, err
	}
	ok, enc := sniff(head)
	if !ok {
		return false, EncUnknown, nil
	}
	return true, enc, nil
}
