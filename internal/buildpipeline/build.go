// Package buildpipeline orchestrates a build: resources are loaded, the
// resolver passes run, and the resulting metadata is written.
package buildpipeline

import (
	"context"
	"fmt"
	"time"

	"rescomp/internal/diag"
	"rescomp/internal/metacache"
	"rescomp/internal/source"
	"rescomp/internal/workflow"
)

// BuildRequest configures output generation for a compilation.
type BuildRequest struct {
	CompileRequest
	// MetadataOut is where the metadata is written; empty writes nothing.
	MetadataOut string
	// Cache remembers finished builds by fingerprint. May be nil.
	Cache *metacache.DiskCache
}

// BuildResult captures build artefacts and timings.
type BuildResult struct {
	CompileResult
	OutputPath string
	Payload    *metacache.Payload
	// Cached is set when the payload came from the cache and no pass ran.
	Cached bool
}

// Build compiles the project and writes its metadata.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	in, err := prepare(ctx, &req.CompileRequest, &result.CompileResult)
	if err != nil {
		return result, err
	}

	if !result.Bag.HasErrors() {
		p, ok, err := req.Cache.Get(result.Fingerprint)
		if err != nil {
			return result, fmt.Errorf("build cache: %w", err)
		}
		if ok {
			result.Payload = p
			result.Cached = true
			emitStage(req.Progress, in.names, StagePrecompile, StatusCached, nil, 0)
			return result, writeOutput(req, &result)
		}
	}

	if err := runPasses(ctx, &req.CompileRequest, in, &result.CompileResult); err != nil {
		return result, err
	}
	if err := checkDiagnostics(&req.CompileRequest, &result.CompileResult); err != nil {
		return result, err
	}
	if result.Bag.HasErrors() {
		// broken builds are neither written nor cached
		return result, nil
	}

	result.Payload = payloadOf(req, &result)
	if result.Payload == nil {
		return result, nil
	}
	if err := req.Cache.Put(result.Fingerprint, result.Payload); err != nil {
		msg := fmt.Sprintf("cannot store build cache entry: %v", err)
		result.Bag.Add(diag.New(diag.SevWarning, diag.PrjMetadataExport, source.Span{}, msg))
	}
	return result, writeOutput(req, &result)
}

// payloadOf picks the bucket whose assembly is the product of the build:
// the instance classes when there are any, the shared scripts otherwise.
func payloadOf(req *BuildRequest, result *BuildResult) *metacache.Payload {
	s := result.Session
	b := s.Bucket(workflow.PathInstanceClass)
	if b == nil || b.Assembly == nil {
		b = s.Bucket(workflow.PathShared)
	}
	if b == nil || b.Assembly == nil {
		return nil
	}
	names := make([]string, 0, len(result.Resources))
	for _, r := range result.Resources {
		names = append(names, r.Name)
	}
	return &metacache.Payload{
		Package:     req.Manifest.Config.Package.Name,
		Fingerprint: result.Fingerprint,
		Created:     time.Now().UTC(),
		Resources:   names,
		Metadata:    b.Metadata,
		Assembly:    b.Assembly,
	}
}

func writeOutput(req *BuildRequest, result *BuildResult) error {
	if req.MetadataOut == "" || result.Payload == nil {
		return nil
	}
	start := time.Now()
	emitStage(req.Progress, nil, StageWrite, StatusWorking, nil, 0)
	path := req.Manifest.Resolve(req.MetadataOut)
	if err := metacache.WriteFile(path, result.Payload); err != nil {
		err = fmt.Errorf("write metadata: %w", err)
		emitStage(req.Progress, nil, StageWrite, StatusError, err, time.Since(start))
		return err
	}
	result.OutputPath = path
	result.Timings.Set(StageWrite, time.Since(start))
	emitStage(req.Progress, nil, StageWrite, StatusDone, nil, time.Since(start))
	return nil
}
