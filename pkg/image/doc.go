/*
Package image is Coney's local image store: it resolves an image
reference to a cached root filesystem on disk.

Rootfs directories live under the store root keyed by a digest of the
normalized reference; the reference index is a bbolt database, so the
cache survives engine restarts. Images enter the store by importing a
rootfs archive:

	store, err := image.NewStore("/var/lib/coney/images")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	rec, err := store.Import(ctx, "alpine:3.20", "alpine-rootfs.tar.gz")

	rootfs, err := store.Resolve(ctx, "alpine:3.20")

Resolve never reaches out to a registry; an unimported reference
yields a NotFoundError, which the lifecycle engine surfaces as the
container-create failure. Registry pulling belongs to a higher layer.
*/
package image
