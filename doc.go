// Package jarir turns downloaded Jarir Reader packages back into readable
// books.
//
// A downloaded package is a zip archive whose entries are protected with an
// RC4 keystream. Chapter text is additionally zlib-compressed, and styling is
// kept out of band in .spans files that address the plaintext by character
// offset. This package decrypts the archive, renders each chapter's spans
// into XHTML, titles chapters from the book-wide table of contents and
// packages the result as EPUB, Markdown or PDF.
//
// # Decrypting a package
//
// [DecryptArchive] extracts every entry into a working directory and
// decrypts the protected ones in place:
//
//	err := jarir.DecryptArchive("books/123.zip", "books/123", jarir.DefaultBookKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Some titles are delivered as a ".body" download plus a base64 header blob
// encrypted with a key derived from the account token. [SpliceFile] joins the
// two and returns the book key carried in the header.
//
// # Rendering chapters
//
// [BuildChapters] reads the manifest, the table of contents and every
// chapter from a working directory:
//
//	m, _ := jarir.ReadManifest("books/123")
//	chapters, err := jarir.BuildChapters("books/123", m)
//	for _, ch := range chapters {
//	    fmt.Println(ch.Title, ch.Filename)
//	}
//
// The span renderer is also available on its own through [RenderSpans] and
// [Renderer.Render].
//
// # Reconstructing books
//
// [Engine] runs the whole pipeline for one book: splice, decrypt, render,
// package and clean up. Book records are kept in a store.Store from the
// store subpackage.
//
//	engine, err := jarir.New(*jarir.DefaultConfig())
//	res, err := engine.Reconstruct(ctx, book, token)
//
// # Error Handling
//
// Every error wraps one class sentinel so callers can branch with errors.Is:
//   - [ErrIO] – filesystem failure
//   - [ErrArchiveFormat] – malformed archive or missing entry
//   - [ErrCipher] – header decryption failed
//   - [ErrDecompression] – text did not inflate, usually a wrong key
//   - [ErrManifest] – manifest or table of contents unusable
//   - [ErrSpan] – malformed span tuple
//   - [ErrInvalidInput] – bad caller argument such as an unusable book id
//
// Engine failures are reported as [*StageError]; [IsRetryable] tells whether
// downloading the book again may help.
package jarir
