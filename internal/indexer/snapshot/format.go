// Package snapshot persists a built index and its document store. Each
// artifact is a small binary header (magic, version, kind, build id, payload
// length, CRC32) followed by a JSON payload. The format is private to this
// version of the program.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
)

// MagicBytes identifies a snapshot artifact ("MVSX").
const (
	MagicBytes    uint32 = 0x4D565358
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
)

// Artifact names. Each can be loaded on its own.
const (
	IndexArtifact  = "index"
	DocMapArtifact = "docmap"
)

type Kind uint32

const (
	KindIndex Kind = iota + 1
	KindDocMap
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return IndexArtifact
	case KindDocMap:
		return DocMapArtifact
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Header is the fixed-size prefix of every artifact.
type Header struct {
	Magic      uint32
	Version    uint32
	Kind       Kind
	BuildIDLen uint32
	PayloadLen uint64
	Checksum   uint32
}

// Snapshot is everything a build produces. BuildID ties the index and
// docmap artifacts of one build together. Analyzer is the fingerprint of the
// tokenizer the terms were produced with.
type Snapshot struct {
	BuildID    string
	CreatedAt  time.Time
	Analyzer   string
	Terms      []index.TermEntry
	DocLengths map[int]int
	Documents  []catalog.Document
}

type indexPayload struct {
	CreatedAt  time.Time         `json:"created_at"`
	Analyzer   string            `json:"analyzer"`
	Terms      []index.TermEntry `json:"terms"`
	DocLengths map[int]int       `json:"doc_lengths"`
}

type docMapPayload struct {
	CreatedAt time.Time          `json:"created_at"`
	Documents []catalog.Document `json:"documents"`
}

// EncodeIndex serialises the index half of s.
func EncodeIndex(s *Snapshot) ([]byte, error) {
	return encode(KindIndex, s.BuildID, indexPayload{
		CreatedAt:  s.CreatedAt,
		Analyzer:   s.Analyzer,
		Terms:      s.Terms,
		DocLengths: s.DocLengths,
	})
}

// EncodeDocMap serialises the document-store half of s.
func EncodeDocMap(s *Snapshot) ([]byte, error) {
	return encode(KindDocMap, s.BuildID, docMapPayload{
		CreatedAt: s.CreatedAt,
		Documents: s.Documents,
	})
}

// DecodeIndex parses an index artifact into a Snapshot with Documents unset.
func DecodeIndex(data []byte) (*Snapshot, error) {
	var p indexPayload
	buildID, err := decode(data, KindIndex, &p)
	if err != nil {
		return nil, err
	}
	if p.DocLengths == nil {
		p.DocLengths = make(map[int]int)
	}
	return &Snapshot{
		BuildID:    buildID,
		CreatedAt:  p.CreatedAt,
		Analyzer:   p.Analyzer,
		Terms:      p.Terms,
		DocLengths: p.DocLengths,
	}, nil
}

// DecodeDocMap parses a docmap artifact into a Snapshot with only Documents.
func DecodeDocMap(data []byte) (*Snapshot, error) {
	var p docMapPayload
	buildID, err := decode(data, KindDocMap, &p)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		BuildID:   buildID,
		CreatedAt: p.CreatedAt,
		Documents: p.Documents,
	}, nil
}

// Merge combines separately loaded halves. Halves from different builds mean
// a save was interrupted between artifacts, which counts as no snapshot.
func Merge(idx, docs *Snapshot) (*Snapshot, error) {
	if idx.BuildID != docs.BuildID {
		return nil, apperrors.NotFound("index build %s does not match docmap build %s", idx.BuildID, docs.BuildID)
	}
	return &Snapshot{
		BuildID:    idx.BuildID,
		CreatedAt:  idx.CreatedAt,
		Analyzer:   idx.Analyzer,
		Terms:      idx.Terms,
		DocLengths: idx.DocLengths,
		Documents:  docs.Documents,
	}, nil
}

func encode(kind Kind, buildID string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", kind, err)
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(buildID)+len(body))
	buf = append(buf, buildID...)
	buf = append(buf, body...)

	binary.LittleEndian.PutUint32(buf[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(kind))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(buildID)))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(body)))
	binary.LittleEndian.PutUint32(buf[24:28], crc32.ChecksumIEEE(buf[HeaderSize:]))
	return buf, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, apperrors.NotFound("truncated header: %d bytes", len(data))
	}
	h := Header{
		Magic:      binary.LittleEndian.Uint32(data[0:4]),
		Version:    binary.LittleEndian.Uint32(data[4:8]),
		Kind:       Kind(binary.LittleEndian.Uint32(data[8:12])),
		BuildIDLen: binary.LittleEndian.Uint32(data[12:16]),
		PayloadLen: binary.LittleEndian.Uint64(data[16:24]),
		Checksum:   binary.LittleEndian.Uint32(data[24:28]),
	}
	if h.Magic != MagicBytes {
		return h, apperrors.NotFound("bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return h, apperrors.NotFound("unsupported format version %d", h.Version)
	}
	return h, nil
}

func decode(data []byte, want Kind, into any) (string, error) {
	h, err := parseHeader(data)
	if err != nil {
		return "", err
	}
	if h.Kind != want {
		return "", apperrors.NotFound("artifact is %s, expected %s", h.Kind, want)
	}
	bodyLen := uint64(len(data) - HeaderSize)
	if uint64(h.BuildIDLen)+h.PayloadLen != bodyLen {
		return "", apperrors.NotFound("%s artifact truncated: header declares %d bytes, found %d",
			want, uint64(h.BuildIDLen)+h.PayloadLen, bodyLen)
	}
	if sum := crc32.ChecksumIEEE(data[HeaderSize:]); sum != h.Checksum {
		return "", apperrors.NotFound("%s artifact checksum mismatch", want)
	}
	buildID := string(data[HeaderSize : HeaderSize+int(h.BuildIDLen)])
	if err := json.Unmarshal(data[HeaderSize+int(h.BuildIDLen):], into); err != nil {
		return "", apperrors.NotFound("parsing %s payload: %v", want, err)
	}
	return buildID, nil
}
