package retrier

// Do runs fn up to retry times, sleeping sleep seconds after each failure,
// and returns the last error when no attempt succeeds. A zero retry still
// runs fn once.
//
//	go func() {
//	    errCh <- retrier.Do(3, 5, func() error {
//	        return cache.Set(ctx, key, survey)
//	    })
//	}()
func Do(retry uint8, sleep uint, fn func() error) error {
	_, err := Connect(max(retry, 1), sleep, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
