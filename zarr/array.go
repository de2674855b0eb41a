package zarr

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/internal/planner"
	"github.com/tuskan/zarr-core/internal/splitter"
	"github.com/tuskan/zarr-core/storage"
	"github.com/tuskan/zarr-core/subset"
)

// Array is the read-only sync facade over one node's chunked data (spec.md
// §4.6). Read operations are stateless beyond the parsed Metadata and the
// store handle; outer fan-out uses goroutine-per-work-item under a bounded
// errgroup.Group (SPEC_FULL.md §5).
type Array struct {
	store       storage.Store
	path        string
	meta        *Metadata
	concurrency int
	// dispatch runs tasks under a scheduler bounded to at most limit
	// concurrent at once, first-error-wins. The sync facade's default is
	// a fresh errgroup.Group per call; AsyncArray overrides it to reuse a
	// long-lived taskpool.Pool instead (SPEC_FULL.md §5).
	dispatch func(ctx context.Context, limit int, tasks []func(ctx context.Context) error) error
}

// Option configures an Array at Open time.
type Option func(*Array)

// WithConcurrency sets the target total concurrency budget (§4.5) used to
// size outer fan-out and inner codec concurrency. Defaults to
// runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(a *Array) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// Open fetches and parses the zarr.json at path, returning an Array handle.
// A malformed or missing document is fatal: the handle never comes into
// existence (spec.md §7).
func Open(ctx context.Context, store storage.Store, path string, opts ...Option) (*Array, error) {
	key := storage.MetaKey(path)
	raw, err := store.Get(ctx, key)
	if err != nil {
		return nil, &ArrayCreateError{Path: path, Kind: InvalidMetadata, Err: err}
	}
	if raw == nil {
		return nil, &ArrayCreateError{Path: path, Kind: MissingMetadata}
	}
	meta, err := ParseMetadata(raw)
	if err != nil {
		var ce *ArrayCreateError
		if errors.As(err, &ce) {
			ce.Path = path
			return nil, ce
		}
		return nil, &ArrayCreateError{Path: path, Kind: InvalidMetadata, Err: err}
	}

	a := &Array{store: store, path: path, meta: meta, concurrency: runtime.GOMAXPROCS(0)}
	a.dispatch = a.dispatchErrgroup
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// dispatchErrgroup is the sync facade's default scheduler: a fresh
// errgroup.Group per call, bounded to limit concurrent goroutines.
func (a *Array) dispatchErrgroup(ctx context.Context, limit int, tasks []func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, t := range tasks {
		t := t
		g.Go(func() error { return t(gctx) })
	}
	return g.Wait()
}

// Exists reports whether a node's zarr.json is present at path, without
// parsing it (SPEC_FULL.md §7, translated from node_exists).
func Exists(ctx context.Context, store storage.Store, path string) (bool, error) {
	_, ok, err := store.Size(ctx, storage.MetaKey(path))
	if err != nil {
		return false, storageError("exists", err)
	}
	return ok, nil
}

// Shape returns the array's declared element shape.
func (a *Array) Shape() []uint64 { return a.meta.Shape }

// DataType returns the array's element data type.
func (a *Array) DataType() codec.DataType { return a.meta.DataType }

// Metadata returns the array's parsed metadata document.
func (a *Array) Metadata() *Metadata { return a.meta }

func (a *Array) elementSize() int { return a.meta.DataType.Size() }

func (a *Array) dataKey(coord []uint64) storage.Key {
	return storage.DataKey(a.path, coord, a.meta.ChunkKeyEncoding)
}

func (a *Array) chunkRepresentation(chunkShape []uint64) codec.ChunkRepresentation {
	return codec.ChunkRepresentation{Shape: chunkShape, DataType: a.meta.DataType, FillValue: a.meta.FillValue}
}

func (a *Array) validateChunkCoord(op string, coord []uint64) ([]uint64, error) {
	chunkShape, err := a.meta.ChunkGrid.ChunkShape(coord, a.meta.Shape)
	if err != nil {
		return nil, invalidChunkGridIndices(op, coord, err)
	}
	return chunkShape, nil
}

func (a *Array) validateArraySubset(op string, r subset.ArraySubset) error {
	if !r.InBounds(a.meta.Shape) {
		return invalidArraySubset(op, r, fmt.Errorf("out of bounds for array shape %v", a.meta.Shape))
	}
	return nil
}

// RetrieveChunkIfExists decodes chunk coord's full bytes, or reports
// (nil, false, nil) if the chunk's key is absent from the store.
func (a *Array) RetrieveChunkIfExists(ctx context.Context, coord []uint64) ([]byte, bool, error) {
	return a.retrieveChunkIfExistsOpts(ctx, coord, codec.DefaultOptions())
}

func (a *Array) retrieveChunkIfExistsOpts(ctx context.Context, coord []uint64, opts codec.Options) ([]byte, bool, error) {
	const op = "retrieve_chunk_if_exists"
	chunkShape, err := a.validateChunkCoord(op, coord)
	if err != nil {
		return nil, false, err
	}
	raw, err := a.store.Get(ctx, a.dataKey(coord))
	if err != nil {
		return nil, false, storageError(op, err)
	}
	if raw == nil {
		return nil, false, nil
	}
	rep := a.chunkRepresentation(chunkShape)
	decoded, err := a.meta.Pipeline.Decode(ctx, raw, rep, opts)
	if err != nil {
		return nil, false, a.wrapDecodeErr(op, err)
	}
	return decoded, true, nil
}

// RetrieveChunk decodes chunk coord's full bytes, filling with the
// array's fill value if the chunk is absent (spec.md §8 "absent chunk =
// fill").
func (a *Array) RetrieveChunk(ctx context.Context, coord []uint64) ([]byte, error) {
	return a.retrieveChunkOpts(ctx, coord, codec.DefaultOptions())
}

func (a *Array) retrieveChunkOpts(ctx context.Context, coord []uint64, opts codec.Options) ([]byte, error) {
	const op = "retrieve_chunk"
	decoded, ok, err := a.retrieveChunkIfExistsOpts(ctx, coord, opts)
	if err != nil {
		return nil, err
	}
	if ok {
		return decoded, nil
	}
	chunkShape, err := a.validateChunkCoord(op, coord)
	if err != nil {
		return nil, err
	}
	return a.meta.FillValue.Repeat(product(chunkShape)), nil
}

// RetrieveChunkSubset decodes only the requested sub-region of chunk
// coord, using the pipeline's partial-decoder path when the subset is a
// strict sub-range, or a full decode when it covers the whole chunk.
func (a *Array) RetrieveChunkSubset(ctx context.Context, coord []uint64, s subset.ArraySubset) ([]byte, error) {
	return a.retrieveChunkSubsetOpts(ctx, coord, s, codec.DefaultOptions())
}

func (a *Array) retrieveChunkSubsetOpts(ctx context.Context, coord []uint64, s subset.ArraySubset, opts codec.Options) ([]byte, error) {
	const op = "retrieve_chunk_subset"
	chunkShape, err := a.validateChunkCoord(op, coord)
	if err != nil {
		return nil, err
	}
	if !s.InBounds(chunkShape) {
		return nil, invalidArraySubset(op, s, fmt.Errorf("out of bounds for chunk shape %v", chunkShape))
	}
	if s.Equal(subset.NewFull(chunkShape)) {
		return a.retrieveChunkOpts(ctx, coord, opts)
	}

	key := a.dataKey(coord)
	_, ok, err := a.store.Size(ctx, key)
	if err != nil {
		return nil, storageError(op, err)
	}
	if !ok {
		return a.meta.FillValue.Repeat(s.NumElements()), nil
	}

	rep := a.chunkRepresentation(chunkShape)
	reader := codec.NewStoragePartialDecoder(a.store, key)
	decoder, err := a.meta.Pipeline.PartialDecoder(ctx, reader, rep, opts)
	if err != nil {
		return nil, a.wrapDecodeErr(op, err)
	}
	out, err := decoder.DecodeSubset(ctx, []codec.ChunkSubsetRequest{{Start: s.Start(), Shape: s.Shape()}})
	if err != nil {
		return nil, a.wrapDecodeErr(op, err)
	}
	return out[0], nil
}

// RetrieveChunks decodes the concatenated (row-major tile assembly)
// region covered by chunk-grid subset k (chunk-index space, not element
// space).
func (a *Array) RetrieveChunks(ctx context.Context, k subset.ArraySubset) ([]byte, error) {
	const op = "retrieve_chunks"
	gridShape := a.meta.ChunkGrid.GridShape(a.meta.Shape)
	if !k.InBounds(gridShape) {
		return nil, invalidChunkGridIndices(op, k.Start(), fmt.Errorf("chunk-grid subset %v out of bounds for grid shape %v", k, gridShape))
	}
	r, err := a.arraySubsetForChunkGridSubset(k)
	if err != nil {
		return nil, err
	}
	return a.RetrieveArraySubset(ctx, r)
}

// RetrieveArraySubset decodes the requested array-space region, assembling
// it from however many chunks it intersects (spec.md §4.2's fast paths,
// §4.5's concurrency split).
func (a *Array) RetrieveArraySubset(ctx context.Context, r subset.ArraySubset) ([]byte, error) {
	buffer := subset.NewAliasedBuffer(r.NumElements() * uint64(a.elementSize()))
	view, err := subset.NewArrayView(buffer, r.Shape(), subset.NewFull(r.Shape()), a.elementSize())
	if err != nil {
		return nil, invalidArraySubset("retrieve_array_subset", r, err)
	}
	if err := a.retrieveArraySubsetIntoView(ctx, r, view); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// RetrieveChunkIntoArrayView decodes chunk coord's full bytes directly
// into view, which must address a region shaped exactly like the chunk.
func (a *Array) RetrieveChunkIntoArrayView(ctx context.Context, coord []uint64, view *subset.ArrayView) error {
	const op = "retrieve_chunk_into_array_view"
	chunkShape, err := a.validateChunkCoord(op, coord)
	if err != nil {
		return err
	}
	if !shapeEqual(view.Subset().Shape(), chunkShape) {
		return invalidArraySubset(op, view.Subset(), fmt.Errorf("view shape does not match chunk shape %v", chunkShape))
	}
	decoded, err := a.RetrieveChunk(ctx, coord)
	if err != nil {
		return err
	}
	return view.WriteContiguous(decoded)
}

// RetrieveChunkSubsetIntoArrayView decodes s of chunk coord directly into
// view, which must address a region shaped exactly like s.
func (a *Array) RetrieveChunkSubsetIntoArrayView(ctx context.Context, coord []uint64, s subset.ArraySubset, view *subset.ArrayView) error {
	const op = "retrieve_chunk_subset_into_array_view"
	if !shapeEqual(view.Subset().Shape(), s.Shape()) {
		return invalidArraySubset(op, view.Subset(), fmt.Errorf("view shape does not match requested subset shape %v", s.Shape()))
	}
	decoded, err := a.RetrieveChunkSubset(ctx, coord, s)
	if err != nil {
		return err
	}
	return view.WriteContiguous(decoded)
}

// RetrieveChunksIntoArrayView decodes chunk-grid subset k directly into
// view, which must address a region shaped like k's corresponding array
// region.
func (a *Array) RetrieveChunksIntoArrayView(ctx context.Context, k subset.ArraySubset, view *subset.ArrayView) error {
	const op = "retrieve_chunks_into_array_view"
	gridShape := a.meta.ChunkGrid.GridShape(a.meta.Shape)
	if !k.InBounds(gridShape) {
		return invalidChunkGridIndices(op, k.Start(), fmt.Errorf("chunk-grid subset %v out of bounds for grid shape %v", k, gridShape))
	}
	r, err := a.arraySubsetForChunkGridSubset(k)
	if err != nil {
		return err
	}
	if !shapeEqual(view.Subset().Shape(), r.Shape()) {
		return invalidArraySubset(op, view.Subset(), fmt.Errorf("view shape does not match chunk-grid subset's array shape %v", r.Shape()))
	}
	return a.retrieveArraySubsetIntoView(ctx, r, view)
}

// RetrieveArraySubsetIntoArrayView decodes r directly into view, which
// must address a region shaped exactly like r.
func (a *Array) RetrieveArraySubsetIntoArrayView(ctx context.Context, r subset.ArraySubset, view *subset.ArrayView) error {
	const op = "retrieve_array_subset_into_array_view"
	if !shapeEqual(view.Subset().Shape(), r.Shape()) {
		return invalidArraySubset(op, view.Subset(), fmt.Errorf("view shape does not match requested subset shape %v", r.Shape()))
	}
	return a.retrieveArraySubsetIntoView(ctx, r, view)
}

// PartialDecoder builds a decoder able to serve sub-regions of chunk
// coord directly against the store, without a full decode.
func (a *Array) PartialDecoder(ctx context.Context, coord []uint64) (codec.ArrayPartialDecoder, error) {
	const op = "partial_decoder"
	chunkShape, err := a.validateChunkCoord(op, coord)
	if err != nil {
		return nil, err
	}
	rep := a.chunkRepresentation(chunkShape)
	reader := codec.NewStoragePartialDecoder(a.store, a.dataKey(coord))
	decoder, err := a.meta.Pipeline.PartialDecoder(ctx, reader, rep, codec.DefaultOptions())
	if err != nil {
		return nil, a.wrapDecodeErr(op, err)
	}
	return decoder, nil
}

// retrieveArraySubsetIntoView is the shared core behind every owned-buffer
// and into-view retrieval above: plan r's intersecting chunks, classify
// the fast path, and either memset fill, decode the single chunk, or fan
// out across chunks under the splitter's concurrency budget.
func (a *Array) retrieveArraySubsetIntoView(ctx context.Context, r subset.ArraySubset, view *subset.ArrayView) error {
	const op = "retrieve_array_subset"
	if err := a.validateArraySubset(op, r); err != nil {
		return err
	}

	items, err := planner.Plan(r, a.meta.ChunkGrid, a.meta.Shape)
	if err != nil {
		return invalidArraySubset(op, r, err)
	}

	switch planner.Classify(items, r) {
	case planner.FastPathFill:
		return view.FillValue(a.meta.FillValue)
	case planner.FastPathFullChunk, planner.FastPathPartialChunk:
		opts, err := a.innerOptions(items[0].ChunkCoord, len(items))
		if err != nil {
			return err
		}
		return a.writeWorkItem(ctx, items[0], view, opts)
	default:
		return a.retrieveConcurrent(ctx, items, view)
	}
}

// innerOptions derives the codec.Options an individual work item's decode
// should run with: the splitter (spec.md §4.5) divides the array's total
// concurrency budget between nItems-wide outer fan-out and per-chunk inner
// codec concurrency, using representativeCoord's chunk as a stand-in for
// every item's recommended concurrency window (all chunks in one array
// share one pipeline, so the window is the same for all of them).
func (a *Array) innerOptions(representativeCoord []uint64, nItems int) (codec.Options, error) {
	chunkShape, err := a.meta.ChunkGrid.ChunkShape(representativeCoord, a.meta.Shape)
	if err != nil {
		return codec.Options{}, invalidChunkGridIndices("retrieve_array_subset", representativeCoord, err)
	}
	rec := a.meta.Pipeline.RecommendedConcurrency(a.chunkRepresentation(chunkShape))
	_, inner := splitter.Split(a.concurrency, nItems, rec)
	return codec.Options{InnerConcurrency: inner}, nil
}

// writeWorkItem decodes one planner work item (full chunk or a partial
// subset of it, whichever its ChunkSubset calls for) under opts and writes
// the result into the destination window of view that item.ViewSubset
// names.
func (a *Array) writeWorkItem(ctx context.Context, item planner.WorkItem, view *subset.ArrayView, opts codec.Options) error {
	dst, err := view.SubsetView(item.ViewSubset)
	if err != nil {
		return err
	}
	decoded, err := a.retrieveWorkItemBytes(ctx, item, opts)
	if err != nil {
		return err
	}
	return dst.WriteContiguous(decoded)
}

// retrieveWorkItemBytes decodes one work item's chunk contribution under
// opts: the whole chunk when its subset spans it entirely, otherwise a
// partial decode of just that subset.
func (a *Array) retrieveWorkItemBytes(ctx context.Context, item planner.WorkItem, opts codec.Options) ([]byte, error) {
	chunkShape, err := a.meta.ChunkGrid.ChunkShape(item.ChunkCoord, a.meta.Shape)
	if err != nil {
		return nil, invalidChunkGridIndices("retrieve_array_subset", item.ChunkCoord, err)
	}
	if item.ChunkSubset.Equal(subset.NewFull(chunkShape)) {
		return a.retrieveChunkOpts(ctx, item.ChunkCoord, opts)
	}
	return a.retrieveChunkSubsetOpts(ctx, item.ChunkCoord, item.ChunkSubset, opts)
}

// retrieveConcurrent fans out planner work items through a.dispatch (a
// bounded errgroup.Group, or the task pool for an AsyncArray), sized by
// the concurrency splitter (spec.md §4.5), and
// embeds the splitter's inner-concurrency half into the codec.Options each
// work item decodes with. First error cancels the group's context and
// aborts in-flight siblings' cooperation points; in-flight work may still
// complete but its result is discarded (spec.md §5 cancellation).
func (a *Array) retrieveConcurrent(ctx context.Context, items []planner.WorkItem, view *subset.ArrayView) error {
	representativeShape, err := a.meta.ChunkGrid.ChunkShape(items[0].ChunkCoord, a.meta.Shape)
	if err != nil {
		return invalidChunkGridIndices("retrieve_array_subset", items[0].ChunkCoord, err)
	}
	rec := a.meta.Pipeline.RecommendedConcurrency(a.chunkRepresentation(representativeShape))
	outer, inner := splitter.Split(a.concurrency, len(items), rec)
	opts := codec.Options{InnerConcurrency: inner}

	tasks := make([]func(ctx context.Context) error, len(items))
	for i, item := range items {
		item := item
		tasks[i] = func(ctx context.Context) error {
			return a.writeWorkItem(ctx, item, view, opts)
		}
	}
	return a.dispatch(ctx, outer, tasks)
}

// arraySubsetForChunkGridSubset translates a chunk-grid-space subset into
// the array-space region it covers, accounting for a truncated final
// chunk along any axis.
func (a *Array) arraySubsetForChunkGridSubset(k subset.ArraySubset) (subset.ArraySubset, error) {
	chunkSize := a.meta.ChunkGrid.ChunkSize
	d := k.Dimensionality()
	start := make([]uint64, d)
	end := make([]uint64, d)
	kEnd := k.End()
	for i := 0; i < d; i++ {
		start[i] = k.Start()[i] * chunkSize[i]
		e := kEnd[i] * chunkSize[i]
		if e > a.meta.Shape[i] {
			e = a.meta.Shape[i]
		}
		end[i] = e
	}
	shape := make([]uint64, d)
	for i := range shape {
		shape[i] = end[i] - start[i]
	}
	return subset.New(start, shape)
}

// wrapDecodeErr classifies a pipeline decode failure into the
// UnexpectedChunkDecodedSize or CodecError kind per spec.md §4.7.
func (a *Array) wrapDecodeErr(op string, err error) error {
	var sizeErr *codec.UnexpectedSizeError
	if errors.As(err, &sizeErr) {
		return unexpectedChunkDecodedSize(op, sizeErr.Got, sizeErr.Expected)
	}
	return codecError(op, err)
}

func shapeEqual(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func product(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
