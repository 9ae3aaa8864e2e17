// Package seqstore is an append-only store of byte blobs addressed by a
// dense, 0-based sequence number.
//
// # Store Structure
//
// A store pair consists of two files:
//   - an index file (default: "index.bin") of 16-byte entries. Entry n is at
//     offset n*16 and holds offset and length of record n in the data file,
//     both as little-endian uint64
//   - a data file (default: "data.bin") with record payloads back-to-back,
//     no header, no framing
//
// Number of records is size of index file / 16.
//
// # Basic Usage
//
//	s, err := seqstore.CreateForWrite("./data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = s.Append([]byte("value1"))
//	err = s.Close()
//
//	r, err := seqstore.OpenForRead("./data", nil)
//	d, err := r.Read(0)
//
// New and NewReader bind a Store to any io.ReadWriteSeeker / io.ReadSeeker.
//
// # Limitations
//
// New always starts writing data at offset 0. To add records to an existing
// store pair use OpenForAppend, which resumes at the end of the last record.
// Appending a record is two writes that are not atomic: a crash between
// them leaves data not referenced by the index. Check detects that.
//
// # Thread Safety
//
// Store is not safe for concurrent use. Each reader should use
// its own Store from OpenForRead.
package seqstore
