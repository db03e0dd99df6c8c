// Command nexusgate runs the universal LLM gateway: an OpenAI-compatible
// frontend over LightLLM, vLLM, OpenAI, Azure OpenAI, AWS Bedrock, or any
// compatible endpoint.
package main

func main() {
	Execute()
}
