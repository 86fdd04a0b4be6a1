package model

import "fmt"

// IDKind tags a RecordID as either a local optimistic placeholder or a
// remote-assigned identity.
type IDKind int

const (
	// IDLocal marks a placeholder synthesized on-device before the remote
	// write is acknowledged. Local ids never reach the remote store.
	IDLocal IDKind = iota + 1
	// IDRemote marks an identity assigned by the remote store.
	IDRemote
)

// RecordID is a tagged identity for records that pass through the optimistic
// write pipeline. The tag replaces ad hoc string-prefixed temp ids: code that
// needs to know whether a record is acknowledged checks Kind, not the value.
type RecordID struct {
	Value string `json:"value"`
	Kind  IDKind `json:"kind"`
}

// LocalID wraps a placeholder value synthesized on-device.
func LocalID(v string) RecordID { return RecordID{Value: v, Kind: IDLocal} }

// RemoteID wraps an identity assigned by the remote store.
func RemoteID(v string) RecordID { return RecordID{Value: v, Kind: IDRemote} }

// Local reports whether the id is an unacknowledged placeholder.
func (id RecordID) Local() bool { return id.Kind == IDLocal }

// Zero reports whether the id is unset.
func (id RecordID) Zero() bool { return id.Kind == 0 && id.Value == "" }

func (id RecordID) String() string {
	if id.Local() {
		return fmt.Sprintf("local:%s", id.Value)
	}
	return id.Value
}
