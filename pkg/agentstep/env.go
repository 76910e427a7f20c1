package agentstep

import "fmt"

// composeEnv implements spec §4.D step 3: the fixed set of environment
// variables every agent container receives, with the size-bounded fields
// truncated before injection.
func composeEnv(req Request) []string {
	env := []string{
		"TASK_ID=" + req.TaskID,
		fmt.Sprintf("ITERATION=%d", req.Iteration),
		"CONTROL_PLANE_URL=" + req.ControlPlaneURL,
		"LLM_ROUTER_URL=" + req.ControlPlaneURL + "/api/llm",
		"OLLAMA_URL=" + req.OllamaURL,
		"LLM_MODEL=" + req.Model,
		"TASK_DESCRIPTION=" + truncateBytes(req.TaskDescription, maxTaskDescriptionBytes),
		"AGENT_IMAGE=" + req.Image,
		"AGENT_DOCKERFILE=" + truncateBytes(req.DockerfileText, maxDockerfileBytes),
	}
	if req.FollowUp != "" {
		env = append(env, "FOLLOW_UP="+truncateBytes(req.FollowUp, maxFollowUpBytes))
	}
	return env
}
