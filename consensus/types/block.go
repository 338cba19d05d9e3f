package types

// Block is a proposal: a payload plus enough linkage (parent id,
// round, epoch, timestamp, the parent's QC) to place it in the tree.
// P is the opaque application payload type; the VM and wire format
// are external collaborators, so this package never looks inside P.
type Block[P any] struct {
	ID            Hash
	Round         uint64
	Epoch         uint64
	TimestampUsec uint64
	ParentID      Hash
	QC            *QuorumCert
	Payload       *P
	Genesis       bool
}

// ComputeID derives and returns the content hash for the block: its id
// is a content-derived hash, a pure function of the block's fields
// excluding ID itself.
func (b Block[P]) ComputeID() (Hash, error) {
	type wire struct {
		_             struct{} `cbor:",toarray"`
		Round         uint64
		Epoch         uint64
		TimestampUsec uint64
		ParentID      Hash
		QCCertifiedID Hash
		Payload       *P
	}
	w := wire{
		Round:         b.Round,
		Epoch:         b.Epoch,
		TimestampUsec: b.TimestampUsec,
		ParentID:      b.ParentID,
		Payload:       b.Payload,
	}
	if b.QC != nil {
		w.QCCertifiedID = b.QC.CertifiedBlock.ID
	}
	return HashOf(w)
}
