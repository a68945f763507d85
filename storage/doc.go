// Package storage provides content-addressed archival of ceremony artifacts
// with pluggable backends.
//
// Every request carried to the signing device, every response carried back,
// and every collected contribution set can be archived so that the
// ceremony can be audited afterwards. Artifacts are identified by the
// SHA-256 hash of their bytes and kept in one namespace per content type:
//
//	const (
//	    RequestType ContentType = iota
//	    ResponseType
//	    ContributionType
//	)
//
// # Backends
//
//   - FileBackend: local directory, the usual choice on the offline machine
//   - S3Backend: Amazon S3 or a compatible service
//   - IPFSBackend: IPFS node, artifacts written to MFS and pinned
//   - VaultBackend: HashiCorp Vault KV v2, token or client certificate auth
//   - MultiStorageBackend: replicates across several of the above
//
// # Storage URI Format
//
//	file:///var/lib/coldwallet/archive
//	s3://ACCESS_KEY:SECRET_KEY@bucket/prefix/?region=us-west-2
//	ipfs://127.0.0.1:5001/coldwallet?timeout=30s
//	vault://TOKEN@vault.example.com:8200/secret/ceremonies
//
// # Usage
//
//	factory := storage.NewStorageBackendFactory(logger)
//	backend, err := factory.BackendFromURIs([]string{"file:///var/lib/coldwallet/archive"})
//	if err != nil {
//	    return err
//	}
//	id, err := backend.Store(ctx, data, interfaces.RequestType)
package storage
