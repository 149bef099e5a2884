// Comfymeta extracts the generation parameters ComfyUI embeds in the images
// it saves.  ComfyUI stores two documents with every image: the executable
// "prompt" graph and the editor "workflow".  Comfymeta decodes the prompt graph,
// finds the sampler that produced the image and reports its prompt text,
// sampling settings and the models, LoRAs, upscalers, VAEs and ControlNets
// it used.  The workflow document is carried along so that it can be
// recovered from a parsed record.
//
// The metadata package holds the extractor, graphapi the node graph it walks,
// samplers the sampler name translation table and pnginfo the PNG text chunk
// reader.  cmd/comfymeta is a command line front end.
package comfymeta
