// Package all wires every built-in sink backend into the sink factory.
//
// The package exists purely for side effects: importing it (normally as a
// blank import from a wiring layer such as cmd/stageload) runs the init
// functions of each backend, which register their factories and DDL
// bootstrappers with the sink package:
//
//   - "memory"   (stageload/internal/sink/memory)
//   - "sqlite"   (stageload/internal/sink/sqlite)
//   - "postgres" (stageload/internal/sink/postgres)
//
// Library embedders that only need one backend can import it directly and
// skip the others, keeping unused drivers out of their binary.
package all

import (
	_ "stageload/internal/sink/memory"
	_ "stageload/internal/sink/postgres"
	_ "stageload/internal/sink/sqlite"
)
