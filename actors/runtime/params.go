package runtime

import (
	"io"

	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// EmptyReturn is the result of a transition that returns nothing. A nil *EmptyReturn is encoded by the
// host as empty return bytes; a non-nil one as an empty CBOR tuple.
type EmptyReturn struct{}

var _ CBORer = (*EmptyReturn)(nil)

func (*EmptyReturn) MarshalCBOR(w io.Writer) error {
	return cbg.WriteMajorTypeHeader(w, cbg.MajArray, 0)
}

func (*EmptyReturn) UnmarshalCBOR(r io.Reader) error {
	maj, extra, err := cbg.CborReadHeader(r)
	if err != nil {
		return err
	}
	if maj != cbg.MajArray || extra != 0 {
		return xerrors.Errorf("expected empty tuple, got major type %d length %d", maj, extra)
	}
	return nil
}
