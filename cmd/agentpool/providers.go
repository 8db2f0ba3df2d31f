package main

// Agent blank imports. Each import activates a self-registering factory.
// Add new agents here as they are implemented.

import (
	_ "github.com/nodus-labs/agentpool/internal/agents/calculator"
	_ "github.com/nodus-labs/agentpool/internal/agents/currency"
	_ "github.com/nodus-labs/agentpool/internal/agents/email"
	_ "github.com/nodus-labs/agentpool/internal/agents/hitlmath"
	_ "github.com/nodus-labs/agentpool/internal/agents/weather"
)
