// Package mock provides test doubles for the ai interfaces.
//
// The mocks let tests run without a language-model server and give
// deterministic, controllable scores and query batches.
//
//	provider := mock.NewMockProvider(0.9)
//	score, _ := provider.Scorer().Score(ctx, entry)
//
//	scorer := mock.NewMockScorer(0)
//	scorer.ScoreFunc = func(ctx context.Context, e *core.Entry) (float64, error) {
//	    return 0, errors.New("model offline")
//	}
//	count := scorer.CallCount()
//
//	writer := mock.NewMockQueryWriter("millet procurement Karnataka 2024")
//	provider = mock.NewMockProviderWithWriter(writer)
package mock
