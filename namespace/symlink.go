package namespace

// Symlink is a symbolic-link entry. It owns no blocks; deletion follows the
// file rules with an always-empty block contribution.
type Symlink struct {
	inode
	target  string
	diffs   *attrDiffList
	deleted bool
}

func newSymlink(id uint64, name []byte, attr attributes, target string) *Symlink {
	s := &Symlink{target: target}
	s.init(s, id, name, attr)
	return s
}

func (s *Symlink) IsSymlink() bool { return true }

func (s *Symlink) AsSymlink() (*Symlink, error) { return s, nil }

// Target returns the link target path.
func (s *Symlink) Target() string { return s.target }

func (s *Symlink) RecordModification(latest *Snapshot) (Node, error) {
	if s.IsInLatestSnapshot(latest) {
		if s.diffs == nil {
			s.diffs = &attrDiffList{}
			s.history = s.diffs
		}
		s.diffs.saveSelf(latest, s.attr)
	}
	return s, nil
}

func (s *Symlink) CleanSubtree(toDelete, prior *Snapshot, batch *BlockDeletionBatch) (QuotaCounts, error) {
	if toDelete == nil {
		if s.diffs == nil {
			if prior == nil {
				usage := *s.ComputeQuotaUsage(&QuotaCounts{}, false)
				s.DestroyAndCollectBlocks(batch)
				return usage.Negate(), nil
			}
			s.deleted = true
			return QuotaCounts{}, nil
		}
		if _, err := s.RecordModification(prior); err != nil {
			return QuotaCounts{}, err
		}
		s.deleted = true
		return QuotaCounts{}, nil
	}
	if s.diffs == nil {
		return QuotaCounts{}, nil
	}
	s.diffs.deleteDiff(toDelete.id, prior)
	if s.deleted && s.diffs.empty() {
		usage := *s.ComputeQuotaUsage(&QuotaCounts{}, false)
		s.DestroyAndCollectBlocks(batch)
		return usage.Negate(), nil
	}
	return QuotaCounts{}, nil
}

func (s *Symlink) DestroyAndCollectBlocks(batch *BlockDeletionBatch) {
	if s.destroyed {
		return
	}
	s.destroyed = true
	batch.AddRemovedNode(s.id)
	s.diffs = nil
	s.history = nil
	s.deleted = true
	s.clearParent()
}

func (s *Symlink) ComputeQuotaUsage(counts *QuotaCounts, useCache bool) *QuotaCounts {
	counts.Namespace++
	return counts
}

func (s *Symlink) ComputeContentCounts(c *ContentCounts) *ContentCounts {
	c.SymlinkCount++
	return c
}

func (s *Symlink) ComputeContentSummary(m *ContentCountsMap) *ContentCountsMap {
	key := ContentCurrent
	if s.deleted {
		key = ContentSnapshot
	}
	s.ComputeContentCounts(m.Counts(key))
	return m
}
