// Package tempstore stores uploaded file contents in a temporary location
// for the duration of one request.
//
// A Store writes content through a Backend under fresh, opaque names
// ("file_" followed by 32 hex characters) and enforces a maximum upload
// size. Each outcome carries a Code compatible with the legacy numeric
// upload error codes:
//
//   - CodeOK (0): stored, Outcome.Path holds the location
//   - CodeSizeExceeded (1): larger than the configured limit, nothing written
//   - CodeNoTmpDir (6): the storage location does not exist
//   - CodeCantWrite (7): the location refused the write or no free name was found
//
// Two backends are provided:
//   - LocalBackend: files in a directory, created with O_EXCL
//   - S3Backend: objects under a key prefix of an S3 or S3-compatible bucket,
//     created with a conditional PUT (If-None-Match: *)
//
// # Usage
//
//	backend, err := tempstore.NewLocalBackend(os.TempDir())
//	if err != nil {
//	    return err
//	}
//	size, err := tempstore.ParseSize("8M")
//	if err != nil {
//	    return err
//	}
//	store, err := tempstore.New(backend, tempstore.WithMaxSize(size))
//	if err != nil {
//	    return err
//	}
//
//	reg := store.NewRegistry()
//	defer reg.Release(ctx)
//
//	out := reg.Save(ctx, content, int64(len(content)))
//	if out.Code != tempstore.CodeOK {
//	    // report out.Code to the client
//	}
//
// # Cleanup
//
// A Registry collects the paths stored during one request. Release removes
// them best-effort: removal errors are logged at debug level and dropped,
// since a leftover temporary file is not a reason to fail a response.
// Call Registry.Keep for files the caller has taken over.
//
// # Name collisions
//
// Names are random, so collisions are not expected. When a backend still
// reports ErrExists, a new name is generated and the write retried, up to
// the number of attempts set with WithMaxFilenameRetries (default 10).
package tempstore
