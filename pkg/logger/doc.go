// Package logger builds *slog.Logger instances from functional options and
// provides attribute constructors so log keys stay consistent.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("FORMDATA_LOG_ENV"), "formdump"),
//	    logger.WithOutput(os.Stderr),
//	)
//	log.DebugContext(ctx, "file upload failed",
//	    logger.Field("photo"),
//	    logger.UploadCode(1),
//	    logger.Error(err),
//	)
//
// WithEnvironment picks the format and level; WithLevel, WithOutput and
// WithAttr refine them. Decorate wraps an existing logger so that values
// carried by the record context, such as a request id, are added to every
// record.
//
// Error and Errors return an empty attribute for nil errors, so
//
//	log.Info("done", logger.Error(err))
//
// needs no nil check.
package logger
