package backup

// Prune deletes the oldest successful backups beyond keepLast, returning how
// many were removed. keepLast <= 0 disables pruning.
func (e *Engine) Prune(keepLast int) (int, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	catalog, err := e.List()
	if err != nil {
		return 0, err
	}
	if len(catalog.Records) <= keepLast {
		return 0, nil
	}

	pruned := 0
	for _, rec := range catalog.Records[keepLast:] {
		if err := e.Delete(rec.ID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
