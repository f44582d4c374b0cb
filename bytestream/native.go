package bytestream

import "encoding/binary"

// Native-endian reads, for widths above a single byte where spec.md §4.2
// calls for native/big/little endian forms. binary.NativeEndian resolves
// to the host's actual byte order at runtime.

func (r *Reader) ReadNativeU16() (uint16, error) {
	var buf [2]byte
	if err := r.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint16(buf[:]), nil
}

func (r *Reader) ReadNativeU32() (uint32, error) {
	var buf [4]byte
	if err := r.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(buf[:]), nil
}

func (r *Reader) ReadNativeU64() (uint64, error) {
	var buf [8]byte
	if err := r.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}

func (r *Reader) ReadNativeI16() (int16, error) {
	u, err := r.ReadNativeU16()
	return int16(u), err
}

func (r *Reader) ReadNativeI32() (int32, error) {
	u, err := r.ReadNativeU32()
	return int32(u), err
}

func (r *Reader) ReadNativeI64() (int64, error) {
	u, err := r.ReadNativeU64()
	return int64(u), err
}
