package project

import (
	"context"
)

type StubProjectRepo struct {
	nextId      int64
	data        map[int64]Project
	allocations map[int64]int
}

func NewStubProjectRepo() *StubProjectRepo {
	return &StubProjectRepo{
		nextId:      0,
		data:        map[int64]Project{},
		allocations: map[int64]int{},
	}
}

func (s *StubProjectRepo) Store(ctx context.Context, project Project) (int64, error) {
	s.nextId++
	project.ID = s.nextId
	s.data[project.ID] = project
	return project.ID, nil
}

func (s *StubProjectRepo) GetAll(ctx context.Context) ([]Project, error) {
	projects := make([]Project, 0, len(s.data))
	for id := int64(1); id <= s.nextId; id++ {
		if p, ok := s.data[id]; ok {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

func (s *StubProjectRepo) Get(ctx context.Context, id int64) (Project, error) {
	p, ok := s.data[id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *StubProjectRepo) Update(ctx context.Context, project Project) (bool, error) {
	if _, ok := s.data[project.ID]; !ok {
		return false, nil
	}
	s.data[project.ID] = project
	return true, nil
}

func (s *StubProjectRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := s.data[id]; !ok {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

func (s *StubProjectRepo) Exists(ctx context.Context, ids []int64) (bool, error) {
	for _, id := range ids {
		if _, ok := s.data[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *StubProjectRepo) AllocationCount(ctx context.Context, id int64) (int, error) {
	return s.allocations[id], nil
}

// SetAllocationCount lets tests simulate a project owning allocations.
func (s *StubProjectRepo) SetAllocationCount(id int64, count int) {
	s.allocations[id] = count
}

func (s *StubProjectRepo) Cleanup() {
	s.data = map[int64]Project{}
	s.allocations = map[int64]int{}
	s.nextId = 0
}
