package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/onboard/internal/paging"
)

type QueryCmd struct {
	TableFlags
}

func (q *QueryCmd) Run(ctx context.Context, globals *Globals) error {
	fmt.Println(paging.Encode(q.tableState()))
	return nil
}
