package ml

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type countingAdapter struct {
	name   string
	calls  atomic.Int32
	accept string
}

func (a *countingAdapter) Name() string { return a.name }

func (a *countingAdapter) Supports(md *ModelMetadata) bool {
	a.calls.Add(1)
	return frameworkIs(md.Framework, a.accept)
}

func (a *countingAdapter) Load(raw []byte, md *ModelMetadata) (Predictor, error) {
	return nil, errors.New("not implemented")
}

func TestRegistryResolveCaseInsensitive(t *testing.T) {
	registry := NewDefaultRegistry()
	for framework, want := range map[string]string{
		"tree":          "tree",
		"Decision_Tree": "tree",
		"RANDOM_FOREST": "forest",
		"Logistic":      "linear",
	} {
		adapter, err := registry.Resolve(&ModelMetadata{Framework: framework})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", framework, err)
		}
		if adapter.Name() != want {
			t.Fatalf("%s: expected %s, got %s", framework, want, adapter.Name())
		}
	}
}

func TestRegistryUnknownFramework(t *testing.T) {
	registry := NewDefaultRegistry()
	_, err := registry.Resolve(&ModelMetadata{Framework: "SMILE"})
	var unknown *UnknownFrameworkError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownFrameworkError, got %v", err)
	}
	if unknown.Framework != "SMILE" {
		t.Fatalf("unexpected framework: %s", unknown.Framework)
	}
}

func TestRegistryCachesResolution(t *testing.T) {
	smile := &countingAdapter{name: "smile", accept: "smile"}
	registry := NewAdapterRegistry(smile)

	for _, framework := range []string{"SMILE", "smile", "Smile"} {
		adapter, err := registry.Resolve(&ModelMetadata{Framework: framework})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if adapter != smile {
			t.Fatalf("expected smile adapter")
		}
	}
	if got := smile.calls.Load(); got != 1 {
		t.Fatalf("expected Supports to be consulted once, got %d", got)
	}
}

func TestRegistryRegisterOrder(t *testing.T) {
	first := &countingAdapter{name: "first", accept: "tree"}
	registry := NewAdapterRegistry(first)
	registry.Register(TreeAdapter{})

	adapter, err := registry.Resolve(&ModelMetadata{Framework: "tree"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.Name() != "first" {
		t.Fatalf("expected earlier registration to win, got %s", adapter.Name())
	}
	if names := registry.Adapters(); len(names) != 2 || names[1] != "tree" {
		t.Fatalf("unexpected adapters: %v", names)
	}
}

func TestRegistryResolveConcurrent(t *testing.T) {
	registry := NewDefaultRegistry()
	frameworks := []string{"tree", "TREE", "Random_Forest", "linear", "Logistic"}

	var wg sync.WaitGroup
	errs := make(chan error, 50*len(frameworks))
	for i := 0; i < 50; i++ {
		for _, framework := range frameworks {
			wg.Add(1)
			go func(framework string) {
				defer wg.Done()
				if _, err := registry.Resolve(&ModelMetadata{Framework: framework}); err != nil {
					errs <- err
				}
			}(framework)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
}
