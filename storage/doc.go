// Package storage provides the byte-level gateways model artifacts are read from.
//
// A Gateway exposes two operations:
//
//	Get(ctx, key) (io.ReadCloser, error) // stream an object
//	Put(ctx, key, data) error           // store an object atomically
//
// Implementations must be safe for concurrent use and must report a missing
// key with an error satisfying errors.Is(err, ErrNotFound). Failures of the
// backend itself (network, credentials, missing bucket) wrap ErrUnavailable so
// callers can tell "no such model" from "storage is down".
//
// # Built-in Implementations
//
//   - MinioGateway: MinIO and other S3-compatible servers via minio-go
//   - S3Gateway: Amazon S3 via aws-sdk-go-v2
//   - LocalGateway: a directory on the local filesystem
//   - MemoryGateway: in-memory, for tests
package storage
