package mocks

//go:generate mockery --name ExportStore --srcpkg github.com/pathways-lab/scenario-explorer/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name SnapshotReader --srcpkg github.com/pathways-lab/scenario-explorer/internal/results --output ./results --outpkg resultsmocks --with-expecter
//go:generate mockery --name Repository --srcpkg github.com/pathways-lab/scenario-explorer/internal/charts --output ./charts --outpkg chartsmocks --with-expecter
