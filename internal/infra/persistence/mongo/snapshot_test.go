package mongo

import (
	"encoding/json"
	"errors"
	"testing"

	"clamflow/internal/infra/persistence/memory"
	"clamflow/pkg/domain"
)

// The snapshot must serialize as one payload so a single ReplaceOne carries
// every bucket; partial writes would otherwise mix generations on reload.
func TestSnapshotCodecRoundTrip(t *testing.T) {
	lotNumber := "L-001"
	snapshot := memory.Snapshot{
		SchemaVersion: memory.SchemaVersion,
		Suppliers: map[uint64]domain.Supplier{
			1: {Base: domain.Base{ID: 1}, Name: "Bay Clams", LicenseNumber: "LIC002"},
		},
		Receipts: map[uint64]domain.RawMaterial{
			2: {Base: domain.Base{ID: 2}, SupplierID: 1, Weight: 50, LotNumber: &lotNumber, Status: domain.ReceiptStatusAssigned},
		},
		Lots: map[string]domain.Lot{
			lotNumber: {Base: domain.Base{ID: 1}, LotNumber: lotNumber, ReceiptIDs: []uint64{2}, TotalWeight: 50, Status: domain.LotStatusProcessing},
		},
		Grades: map[uint64]domain.ProductGrade{
			1: {Base: domain.Base{ID: 1}, Code: "A", Name: "Premium", ProductType: domain.ProductShellOn},
		},
		Sequences: map[string]uint64{"suppliers": 1, "raw_materials": 2},
	}

	payload, err := encodeSnapshot(snapshot)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var buckets map[string]json.RawMessage
	if err := json.Unmarshal(payload, &buckets); err != nil {
		t.Fatalf("payload is not a single json object: %v", err)
	}
	for _, bucket := range []string{"suppliers", "raw_materials", "lots", "sequences", "schema_version"} {
		if _, ok := buckets[bucket]; !ok {
			t.Fatalf("payload missing bucket %s", bucket)
		}
	}

	decoded, err := decodeSnapshot(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SchemaVersion != memory.SchemaVersion {
		t.Fatalf("schema version %d, want %d", decoded.SchemaVersion, memory.SchemaVersion)
	}
	if got := decoded.Suppliers[1].Name; got != "Bay Clams" {
		t.Fatalf("supplier name %q", got)
	}
	receipt := decoded.Receipts[2]
	if receipt.Status != domain.ReceiptStatusAssigned || receipt.LotNumber == nil || *receipt.LotNumber != lotNumber {
		t.Fatalf("receipt lost lot assignment: %+v", receipt)
	}
	lot := decoded.Lots[lotNumber]
	if lot.TotalWeight != 50 || len(lot.ReceiptIDs) != 1 || lot.ReceiptIDs[0] != 2 {
		t.Fatalf("lot lost receipts: %+v", lot)
	}
	if decoded.Sequences["raw_materials"] != 2 {
		t.Fatalf("sequences not preserved: %v", decoded.Sequences)
	}
}

func TestDecodeSnapshotRejectsCorruptPayload(t *testing.T) {
	_, err := decodeSnapshot([]byte(`{"lots":`))
	var se domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
