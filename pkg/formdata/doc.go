// Package formdata parses multipart/form-data request bodies for methods the
// hosting server leaves unparsed, such as PUT, PATCH and DELETE.
//
// Text parts become a form tree and file parts become a five-tree file
// forest (name, type, tmp_name, error, size), matching the way servers
// expose POST uploads. Field names use bracket notation:
//
//	user[name]      -> {user: {name: ..}}
//	tags[]          -> {tags: [.., ..]}
//	docs[a][]       -> files: {docs: {name: {a: [..]}, ...}}
//
// # Usage
//
//	store, _ := tempstore.New(backend, tempstore.WithMaxSize(2<<20))
//	p, _ := formdata.New(store)
//
//	func update(w http.ResponseWriter, r *http.Request) {
//	    sess, err := p.ParseRequest(r)
//	    if err != nil {
//	        http.Error(w, err.Error(), http.StatusBadRequest)
//	        return
//	    }
//	    defer sess.Release(r.Context())
//
//	    name, _ := sess.Form().Get("user", "name")
//	    photo, ok := sess.File("photo")
//	    ...
//	}
//
// # Errors
//
// Problems with a single part never fail the parse. Parts without a usable
// name are dropped, file parts without a Content-Type are dropped, and files
// that cannot be stored keep their entry with a non-zero error code and an
// empty tmp_name. Parse returns an error only for ErrReadBody and
// ErrTooManyFields; the temporary files written up to that point are removed
// before it returns. The context reaches the store only, so a done context
// fails the remaining uploads with the can't-write code.
//
// # Memory
//
// Only the current part is held in memory. Binary parts are buffered up to
// the store's size limit; past it the bytes are counted but not kept, so the
// file reports its real size with the size-exceeded code.
package formdata
