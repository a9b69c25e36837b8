package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const sessionFormatVersion = 1

var (
	// ErrCorruptRecord indicates a stored session could not be decoded.
	ErrCorruptRecord = errors.New("corrupt session record")
)

// Encode serializes s without its ID, which is part of the Redis key.
//
// Layout: version(1) | len(userID)(1) | userID | createdAt(8) | expiresAt(8).
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.UserID == "" || len(s.UserID) > 255 {
		return nil, errors.New("userID must be 1..255 bytes")
	}

	buf := make([]byte, 0, 2+len(s.UserID)+16)
	buf = append(buf, sessionFormatVersion, byte(len(s.UserID)))
	buf = append(buf, s.UserID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.CreatedAt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.ExpiresAt))
	return buf, nil
}

// Decode parses a record produced by [Encode].
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: empty", ErrCorruptRecord)
	}
	if version != sessionFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, version)
	}

	n, err := r.ReadByte()
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%w: user id length", ErrCorruptRecord)
	}
	userID := make([]byte, n)
	if _, err := r.Read(userID); err != nil || r.Len() != 16 {
		return nil, fmt.Errorf("%w: truncated", ErrCorruptRecord)
	}

	var times [2]int64
	if err := binary.Read(r, binary.BigEndian, &times); err != nil {
		return nil, fmt.Errorf("%w: timestamps", ErrCorruptRecord)
	}

	return &Session{
		UserID:    string(userID),
		CreatedAt: times[0],
		ExpiresAt: times[1],
	}, nil
}
