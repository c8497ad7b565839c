package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// maxAvatarBytes limits upload size to prevent memory exhaustion.
	maxAvatarBytes = 10 * 1024 * 1024 // 10MB

	// Dimension bounds for an acceptable avatar.
	minAvatarDimension = 8
	maxAvatarDimension = 8192
)

// Result describes a processed avatar upload.
type Result struct {
	Hash     string // SHA256 of the stored bytes, for ETag/cache validation
	BlurHash string // Placeholder for clients while the image loads
	Format   string // Decoded format: jpeg, png, gif, webp
	Width    int
	Height   int
	Size     int // Stored size in bytes
}

// Processor validates and stores avatar uploads.
type Processor struct {
	storage *Storage
	logger  *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		logger:  logger,
	}
}

// Process validates an uploaded image and stores it for the user.
// The original bytes are stored unchanged; the decode pass rejects
// non-images and absurd dimensions before anything hits disk.
// Returns the hash and BlurHash to store on the user record.
func (p *Processor) Process(userID string, data []byte) (*Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}
	if len(data) > maxAvatarBytes {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", maxAvatarBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < minAvatarDimension || height < minAvatarDimension {
		return nil, fmt.Errorf("image too small: %dx%d", width, height)
	}
	if width > maxAvatarDimension || height > maxAvatarDimension {
		return nil, fmt.Errorf("image too large: %dx%d", width, height)
	}

	blurHash, err := ComputeBlurHash(img)
	if err != nil {
		return nil, fmt.Errorf("compute blurhash: %w", err)
	}

	if err := p.storage.Save(userID, data); err != nil {
		return nil, fmt.Errorf("save avatar: %w", err)
	}

	hash, err := p.storage.Hash(userID)
	if err != nil {
		return nil, fmt.Errorf("compute avatar hash: %w", err)
	}

	p.logger.Debug("processed avatar upload",
		"user_id", userID,
		"format", format,
		"size", len(data),
		"width", width,
		"height", height,
		"hash", hash[:8]+"...",
	)

	return &Result{
		Hash:     hash,
		BlurHash: blurHash,
		Format:   format,
		Width:    width,
		Height:   height,
		Size:     len(data),
	}, nil
}
