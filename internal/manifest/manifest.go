// Package manifest archives shipment and harvest manifests as JSON documents
// in a pluggable backend (memory, filesystem, or S3). Manifests are an
// append-only audit artifact written after a transaction commits; archive
// failures must never unwind the committed state.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"aquacore/pkg/domain"

	"github.com/shopspring/decimal"
)

// Driver identifies a concrete archive backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// Info describes a stored manifest document.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Archive stores manifest documents. Keys are slash-separated paths; Put must
// fail when the key already exists so a manifest is never overwritten.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ShipmentManifest is the document archived for every fulfilled order.
type ShipmentManifest struct {
	ShipmentID  string                    `json:"shipment_id"`
	OrderID     string                    `json:"order_id"`
	Customer    string                    `json:"customer"`
	Carrier     string                    `json:"carrier"`
	ShipDate    time.Time                 `json:"ship_date"`
	Allocations []domain.AllocationRecord `json:"allocations"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Key returns the archive key for the manifest.
func (m ShipmentManifest) Key() string {
	return fmt.Sprintf("shipments/%s/%s.json", m.ShipDate.UTC().Format("2006-01-02"), m.ShipmentID)
}

// HarvestManifest is the document archived for every completed harvest.
type HarvestManifest struct {
	BatchID        string          `json:"batch_id"`
	SpeciesID      string          `json:"species_id"`
	HarvestedAt    time.Time       `json:"harvested_at"`
	FinalQuantity  int             `json:"final_quantity"`
	MortalityDelta int             `json:"mortality_delta"`
	SurvivalRate   decimal.Decimal `json:"survival_rate"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Key returns the archive key for the manifest.
func (m HarvestManifest) Key() string {
	return fmt.Sprintf("harvests/%s/%s.json", m.HarvestedAt.UTC().Format("2006-01-02"), m.BatchID)
}

// Write encodes doc as JSON and stores it under key.
func Write(ctx context.Context, archive Archive, key string, doc any) (Info, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("encode manifest: %w", err)
	}
	return archive.Put(ctx, key, bytes.NewReader(data))
}

// Open selects an Archive implementation using environment variables.
//
//	AQUACORE_MANIFEST_DRIVER: fs|s3|memory (default fs)
//	AQUACORE_MANIFEST_FS_ROOT: directory root when driver=fs (default ./manifests)
//	(S3 specific variables documented in s3.go)
func Open(ctx context.Context) (Archive, error) {
	driver := os.Getenv("AQUACORE_MANIFEST_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("AQUACORE_MANIFEST_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown manifest driver %s", driver)
	}
}
