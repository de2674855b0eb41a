package storage

import (
	"context"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// BlobStore adapts a gocloud.dev/blob.Bucket to the Store contract,
// generalizing the teacher's blob.OpenBucket-based reader (reader.go) to
// the full store interface of spec.md §6. Any gocloud.dev driver works
// here (file://, mem://, s3://, gs://, azblob://, ...); cmd/zarrcat
// blank-imports the concrete drivers it supports.
type BlobStore struct {
	bucket *blob.Bucket
}

// NewBlobStore wraps an already-open bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// OpenBlobStore opens bucket at urlstr (a gocloud.dev bucket URL, e.g.
// "file:///data/array" or "s3://my-bucket/prefix").
func OpenBlobStore(ctx context.Context, urlstr string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, Wrap("open_bucket", urlstr, err)
	}
	return NewBlobStore(bucket), nil
}

// Close closes the underlying bucket.
func (s *BlobStore) Close() error { return s.bucket.Close() }

func isNotFound(err error) bool {
	return err != nil && gcerrors.Code(err) == gcerrors.NotFound
}

func (s *BlobStore) Get(ctx context.Context, key Key) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, string(key))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, Wrap("get", string(key), err)
	}
	return data, nil
}

func (s *BlobStore) GetPartialValues(ctx context.Context, ranges []KeyRange) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, kr := range ranges {
		size, ok, err := s.Size(ctx, kr.Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		start, end, err := kr.Range.Resolve(size)
		if err != nil {
			return nil, Wrap("get_partial_values", string(kr.Key), err)
		}
		if end <= start {
			out[i] = []byte{}
			continue
		}
		reader, err := s.bucket.NewRangeReader(ctx, string(kr.Key), int64(start), int64(end-start), nil)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, Wrap("get_partial_values", string(kr.Key), err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, Wrap("get_partial_values", string(kr.Key), err)
		}
		out[i] = data
	}
	return out, nil
}

func (s *BlobStore) Size(ctx context.Context, key Key) (uint64, bool, error) {
	attrs, err := s.bucket.Attributes(ctx, string(key))
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, Wrap("size", string(key), err)
	}
	return uint64(attrs.Size), true, nil
}

func (s *BlobStore) List(ctx context.Context, prefix Prefix) ([]Key, error) {
	var keys []Key
	iter := s.bucket.List(&blob.ListOptions{Prefix: string(prefix)})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Wrap("list", string(prefix), err)
		}
		keys = append(keys, Key(obj.Key))
	}
	return keys, nil
}

func (s *BlobStore) ListWithDelimiter(ctx context.Context, prefix Prefix) (ListResult, error) {
	var res ListResult
	iter := s.bucket.List(&blob.ListOptions{Prefix: string(prefix), Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return ListResult{}, Wrap("list_with_delimiter", string(prefix), err)
		}
		if obj.IsDir {
			res.CommonPrefixes = append(res.CommonPrefixes, Prefix(obj.Key))
		} else {
			res.Keys = append(res.Keys, ObjectMeta{Key: Key(obj.Key), Size: uint64(obj.Size)})
		}
	}
	return res, nil
}

func (s *BlobStore) Put(ctx context.Context, key Key, value []byte) error {
	if err := s.bucket.WriteAll(ctx, string(key), value, nil); err != nil {
		return Wrap("put", string(key), err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key Key) error {
	if err := s.bucket.Delete(ctx, string(key)); err != nil {
		if isNotFound(err) {
			return nil
		}
		return Wrap("delete", string(key), err)
	}
	return nil
}
