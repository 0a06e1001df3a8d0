package southbound

import (
	"errors"
	"fmt"
	"testing"
)

func TestVendorErrorUnwrap(t *testing.T) {
	inner := errors.New("op failed: code -4")
	err := CheckSDK(inner, "set speed", 7)
	if err == nil {
		t.Fatal("CheckSDK returned nil for a failed call")
	}
	var ve *VendorError
	if !errors.As(err, &ve) {
		t.Fatalf("error %v is not a VendorError", err)
	}
	if ve.Op != "set speed" || ve.Port != 7 {
		t.Errorf("VendorError = %+v", ve)
	}
	if !errors.Is(err, inner) {
		t.Error("VendorError does not unwrap to the SDK error")
	}
}

func TestCheckSDKNil(t *testing.T) {
	if err := CheckSDK(nil, "set speed", 7); err != nil {
		t.Errorf("CheckSDK(nil) = %v", err)
	}
}

func TestTaxonomySurvivesWrapping(t *testing.T) {
	uerr := fmt.Errorf("programming port: %w", Unsupportedf("no lanes for %d", 400000))
	if !IsUnsupported(uerr) {
		t.Error("wrapped UnsupportedError not detected")
	}
	if IsConsistency(uerr) {
		t.Error("UnsupportedError misclassified as consistency violation")
	}

	cerr := fmt.Errorf("applying delta: %w", Consistencyf("port %d already bound", 3))
	if !IsConsistency(cerr) {
		t.Error("wrapped ConsistencyError not detected")
	}

	var se *StatError
	serr := fmt.Errorf("cycle: %w", &StatError{Counter: "inBytes", Port: 3, Err: errors.New("timeout")})
	if !errors.As(serr, &se) {
		t.Error("wrapped StatError not detected")
	}
}
